// Package ingest implements the S1 ingestion stage: fetch one day,
// decode and validate it, and persist it as a new partition with the
// enrichment columns left null (C4).
package ingest

import (
	"os"
	"path/filepath"

	"krxdb/internal/codec"
	"krxdb/internal/store"
	"krxdb/model"
)

// Fetcher is the external collaborator injected into S1. It is the
// only contract the core has with networking, retry policy, and
// endpoint parsing — all of which live outside this module.
type Fetcher interface {
	FetchDay(date int) ([]model.RawRecord, error)
}

// Result reports the outcome of ingesting a single date.
type Result struct {
	Date       int
	RowCount   int
	NonTrading bool
	Skipped    bool
}

// Day fetches, decodes, and persists one trading date. If the fetcher
// returns no records, the date is recorded as non-trading and no
// partition is created. If skipIfPresent is true and a partition
// already exists for date, Day no-ops.
func Day(w *store.Writer, snapshotRoot string, fetcher Fetcher, date int, rowGroupSize int, compression string, skipIfPresent bool) (Result, error) {
	if skipIfPresent {
		if _, err := os.Stat(filepath.Join(snapshotRoot, store.PartitionKey(date))); err == nil {
			return Result{Date: date, Skipped: true}, nil
		}
	}

	records, err := fetcher.FetchDay(date)
	if err != nil {
		return Result{Date: date}, &model.FetchError{Date: date, Err: err}
	}
	if len(records) == 0 {
		return Result{Date: date, NonTrading: true}, nil
	}

	rows := make([]model.Snapshot, 0, len(records))
	for _, rec := range records {
		row, err := codec.DecodeRecord(date, rec)
		if err != nil {
			return Result{Date: date}, err
		}
		rows = append(rows, row)
	}

	if err := w.WriteSnapshotPartition("snapshots", snapshotRoot, date, rows, rowGroupSize, compression); err != nil {
		return Result{Date: date}, err
	}

	return Result{Date: date, RowCount: len(rows)}, nil
}
