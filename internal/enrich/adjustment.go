// Package enrich implements the S2 adjustment-factor and S3
// liquidity-rank enrichers, both of which read an existing partition,
// attach one new column, and publish the whole partition atomically
// (C5, C6).
package enrich

import (
	"sort"

	"github.com/shopspring/decimal"

	"krxdb/internal/store"
)

type observation struct {
	date       int
	basePrice  int64
	closePrice int64
}

// Adjustments enriches every partition in [start, end] with its
// per-symbol adjustment_factor, looking backward past start as needed
// to find each symbol's predecessor observation. Re-running is
// idempotent: the computation is deterministic from the same inputs,
// so the resulting float64 values are bit-identical across runs.
func Adjustments(snapshotRoot string, w *store.Writer, start, end, rowGroupSize int, compression string) error {
	history, err := loadHistory(snapshotRoot, end)
	if err != nil {
		return err
	}

	targetKeys, err := store.ListPartitionKeys(snapshotRoot, start, end)
	if err != nil {
		return err
	}

	factorsBySymbol := computeFactors(history)

	for _, key := range targetKeys {
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
		for i := range rows {
			if factors, ok := factorsBySymbol[rows[i].Symbol]; ok {
				if f, ok := factors[date]; ok {
					v := f
					rows[i].AdjustmentFactor = &v
					continue
				}
			}
			rows[i].AdjustmentFactor = nil
		}
		if err := w.WriteSnapshotPartition("snapshots", snapshotRoot, date, rows, rowGroupSize, compression); err != nil {
			return err
		}
	}
	return nil
}

// loadHistory reads every partition up to end (not just the target
// window) so the factor for the window's first date can be computed
// against a predecessor that may lie before start.
func loadHistory(snapshotRoot string, end int) (map[string][]observation, error) {
	keys, err := store.ListPartitionKeys(snapshotRoot, 0, end)
	if err != nil {
		return nil, err
	}

	history := make(map[string][]observation)
	for _, key := range keys {
		date, ok := store.ParsePartitionKey(key)
		if !ok {
			continue
		}
		rows, existed, err := store.ReadSnapshotPartition(snapshotRoot, date, nil)
		if err != nil {
			return nil, err
		}
		if !existed {
			continue
		}
		for _, r := range rows {
			history[r.Symbol] = append(history[r.Symbol], observation{
				date:       date,
				basePrice:  r.BasePrice,
				closePrice: r.ClosePrice,
			})
		}
	}
	for symbol := range history {
		obs := history[symbol]
		sort.Slice(obs, func(i, j int) bool { return obs[i].date < obs[j].date })
		history[symbol] = obs
	}
	return history, nil
}

// computeFactors returns, per symbol, a map from date to
// base_price(t)/close_price(predecessor), using a high-precision
// decimal quotient rounded to a precision finer than 10⁻⁶. A symbol's
// first observation in the store has no predecessor and is absent
// from the result (a null factor).
func computeFactors(history map[string][]observation) map[string]map[int]float64 {
	out := make(map[string]map[int]float64, len(history))
	for symbol, obs := range history {
		factors := make(map[int]float64, len(obs))
		for i := 1; i < len(obs); i++ {
			prior := obs[i-1]
			cur := obs[i]
			if prior.closePrice == 0 {
				// Open question resolved in favor of null: division by
				// a zero prior close never yields a synthetic 1.0.
				continue
			}
			quotient := decimal.NewFromInt(cur.basePrice).DivRound(decimal.NewFromInt(prior.closePrice), 12)
			f, _ := quotient.Float64()
			factors[cur.date] = f
		}
		if len(factors) > 0 {
			out[symbol] = factors
		}
	}
	return out
}
