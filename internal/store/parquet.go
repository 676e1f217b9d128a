package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"krxdb/model"
)

const partitionFileName = "data.parquet"

func compressionCodec(name string) parquet.CompressionCodec {
	switch name {
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "zstd":
		return parquet.CompressionCodec_ZSTD
	case "uncompressed":
		return parquet.CompressionCodec_UNCOMPRESSED
	case "snappy", "":
		return parquet.CompressionCodec_SNAPPY
	default:
		return parquet.CompressionCodec_SNAPPY
	}
}

// WriteSnapshotPartition encodes rows (sorted by symbol ascending, per
// §4.2's row-group packing requirement) as the partition's single
// columnar file, flushing a new row group every rowGroupSize rows so
// row-group min/max statistics stay tight enough to prune on symbol.
func (w *Writer) WriteSnapshotPartition(table, finalRoot string, date int, rows []model.Snapshot, rowGroupSize int, compression string) error {
	sorted := make([]model.Snapshot, len(rows))
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

		pw, err := writer.NewParquetWriter(fw, new(model.Snapshot), 4)
		if err != nil {
			return fmt.Errorf("create parquet writer: %w", err)
		}
		pw.CompressionType = compressionCodec(compression)
		pw.RowGroupSize = rowGroupSizeBytes(rowGroupSize)

		for i, row := range sorted {
			if err := pw.Write(row); err != nil {
				pw.WriteStop()
				return fmt.Errorf("write row %d: %w", i, err)
			}
			if rowGroupSize > 0 && (i+1)%rowGroupSize == 0 {
				if err := pw.Flush(true); err != nil {
					return fmt.Errorf("flush row group: %w", err)
				}
			}
		}
		if err := pw.WriteStop(); err != nil {
			return fmt.Errorf("finalize parquet write: %w", err)
		}
		return nil
	})
}

// ReadSnapshotPartition decodes the partition for date, skipping row
// groups whose symbol-column min/max range excludes every requested
// symbol. Returns (nil, false, nil) if the partition does not exist —
// a missing partition is a holiday, not an error. Any other failure to
// open or decode the file is a genuine error and is never mistaken for
// absence.
func ReadSnapshotPartition(root string, date int, symbols map[string]bool) ([]model.Snapshot, bool, error) {
	path := filepath.Join(root, PartitionKey(date), partitionFileName)

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, true, &model.StoreError{Path: path, Stage: "open-read", Err: err}
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(model.Snapshot), 1)
	if err != nil {
		return nil, true, &model.CorruptionError{Path: path, Err: err}
	}
	defer pr.ReadStop()

	var out []model.Snapshot
	for _, rg := range pr.Footer.RowGroups {
		n := int(rg.NumRows)
		if len(symbols) > 0 && rowGroupExcludesSymbols(rg, symbols) {
			if err := pr.SkipRows(int64(n)); err != nil {
				return nil, true, &model.CorruptionError{Path: path, Err: err}
			}
			continue
		}
		rows := make([]model.Snapshot, n)
		if err := pr.Read(&rows); err != nil {
			return nil, true, &model.CorruptionError{Path: path, Err: err}
		}
		for _, row := range rows {
			if len(symbols) == 0 || symbols[row.Symbol] {
				out = append(out, row)
			}
		}
	}
	return out, true, nil
}

// rowGroupExcludesSymbols inspects the isu_srt_cd column's per-row-group
// min/max statistics and reports whether none of the requested symbols
// can possibly fall inside that range, letting the caller skip
// decoding the group entirely.
func rowGroupExcludesSymbols(rg *parquet.RowGroup, symbols map[string]bool) bool {
	for _, col := range rg.Columns {
		if len(col.MetaData.PathInSchema) == 0 {
			continue
		}
		if col.MetaData.PathInSchema[len(col.MetaData.PathInSchema)-1] != "isu_srt_cd" {
			continue
		}
		stats := col.MetaData.Statistics
		if stats == nil || stats.Min == nil || stats.Max == nil {
			return false
		}
		min, max := string(stats.Min), string(stats.Max)
		for s := range symbols {
			if s >= min && s <= max {
				return false
			}
		}
		return true
	}
	return false
}

func rowGroupSizeBytes(rowGroupSize int) int64 {
	// parquet-go's RowGroupSize threshold is byte-denominated; estimate
	// 256 bytes/row for the 13-column snapshot schema so a flush every
	// rowGroupSize rows also respects this upper bound.
	if rowGroupSize <= 0 {
		return 128 * 1024 * 1024
	}
	return int64(rowGroupSize) * 256
}
