// Package universe implements the S4b universe materializer: per-date
// boolean liquidity-tier flags derived from liquidity_rank (C8).
package universe

import (
	"krxdb/internal/store"
	"krxdb/model"
)

// Build reads every snapshot partition in [start, end] after S3 has
// run, and emits a universe partition of boolean flag rows sorted by
// symbol. A symbol with no liquidity_rank (S3 has not yet run for
// that date) is excluded from the universe table for that date rather
// than guessed into or out of a tier.
func Build(snapshotRoot string, w *store.Writer, universeRoot string, start, end int, compression string) error {
	keys, err := store.ListPartitionKeys(snapshotRoot, start, end)
	if err != nil {
		return err
	}

	for _, key := range keys {
		date, ok := store.ParsePartitionKey(key)
		if !ok {
			continue
		}
		rows, existed, err := store.ReadSnapshotPartition(snapshotRoot, date, nil)
		if err != nil {
			return err
		}
		if !existed {
			continue
		}

		out := make([]model.UniverseRow, 0, len(rows))
		for _, r := range rows {
			if r.LiquidityRank == nil {
				continue
			}
			rank := *r.LiquidityRank
			out = append(out, model.UniverseRow{
				TradingDate: date,
				Symbol:      r.Symbol,
				InTop100:    rank <= 100,
				InTop200:    rank <= 200,
				InTop500:    rank <= 500,
				InTop1000:   rank <= 1000,
			})
		}

		if err := w.WriteUniversePartition("universes", universeRoot, date, out, compression); err != nil {
			return err
		}
	}
	return nil
}
