package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"krxdb/model"
)

// WriteUniversePartition encodes the universe flag rows for date,
// sorted by symbol ascending.
func (w *Writer) WriteUniversePartition(table, finalRoot string, date int, rows []model.UniverseRow, compression string) error {
	sorted := make([]model.UniverseRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	key := PartitionKey(date)
	return w.WritePartition(table, finalRoot, key, func(stagingDir string) error {
		path := filepath.Join(stagingDir, partitionFileName)
		fw, err := local.NewLocalFileWriter(path)
		if err != nil {
			return fmt.Errorf("open parquet file writer: %w", err)
		}
		defer fw.Close()

		pw, err := writer.NewParquetWriter(fw, new(model.UniverseRow), 4)
		if err != nil {
			return fmt.Errorf("create parquet writer: %w", err)
		}
		pw.CompressionType = compressionCodec(compression)

		for i, row := range sorted {
			if err := pw.Write(row); err != nil {
				pw.WriteStop()
				return fmt.Errorf("write row %d: %w", i, err)
			}
		}
		if err := pw.WriteStop(); err != nil {
			return fmt.Errorf("finalize parquet write: %w", err)
		}
		return nil
	})
}

// ReadUniversePartition decodes the universe partition for date.
// Returns (nil, false, nil) when the partition is absent; any other
// open or decode failure is a genuine error, never downgraded to
// absence.
func ReadUniversePartition(root string, date int) ([]model.UniverseRow, bool, error) {
	path := filepath.Join(root, PartitionKey(date), partitionFileName)

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, true, &model.StoreError{Path: path, Stage: "open-read", Err: err}
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(model.UniverseRow), 1)
	if err != nil {
		return nil, true, &model.CorruptionError{Path: path, Err: err}
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	rows := make([]model.UniverseRow, n)
	if err := pr.Read(&rows); err != nil {
		return nil, true, &model.CorruptionError{Path: path, Err: err}
	}
	return rows, true, nil
}

// WriteCumulativePartition encodes the ephemeral cumulative-multiplier
// cache rows for date.
func (w *Writer) WriteCumulativePartition(table, finalRoot string, date int, rows []model.CumulativeRow, compression string) error {
	sorted := make([]model.CumulativeRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	key := PartitionKey(date)
	return w.WritePartition(table, finalRoot, key, func(stagingDir string) error {
		path := filepath.Join(stagingDir, partitionFileName)
		fw, err := local.NewLocalFileWriter(path)
		if err != nil {
			return fmt.Errorf("open parquet file writer: %w", err)
		}
		defer fw.Close()

		pw, err := writer.NewParquetWriter(fw, new(model.CumulativeRow), 4)
		if err != nil {
			return fmt.Errorf("create parquet writer: %w", err)
		}
		pw.CompressionType = compressionCodec(compression)

		for i, row := range sorted {
			if err := pw.Write(row); err != nil {
				pw.WriteStop()
				return fmt.Errorf("write row %d: %w", i, err)
			}
		}
		if err := pw.WriteStop(); err != nil {
			return fmt.Errorf("finalize parquet write: %w", err)
		}
		return nil
	})
}

// ReadCumulativePartition decodes the cumulative-multiplier cache
// partition for date. Returns (nil, false, nil) when absent; any other
// open or decode failure is a genuine error, never downgraded to
// absence.
func ReadCumulativePartition(root string, date int) ([]model.CumulativeRow, bool, error) {
	path := filepath.Join(root, PartitionKey(date), partitionFileName)

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, true, &model.StoreError{Path: path, Stage: "open-read", Err: err}
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(model.CumulativeRow), 1)
	if err != nil {
		return nil, true, &model.CorruptionError{Path: path, Err: err}
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	rows := make([]model.CumulativeRow, n)
	if err := pr.Read(&rows); err != nil {
		return nil, true, &model.CorruptionError{Path: path, Err: err}
	}
	return rows, true, nil
}
