// Package cumulative implements the S4a ephemeral cumulative-
// adjustment cache builder: a range-dependent reverse cumulative
// product of future adjustment factors within a query window (C7).
package cumulative

import (
	"github.com/shopspring/decimal"

	"krxdb/internal/store"
	"krxdb/model"
)

type observation struct {
	date   int
	factor *float64
}

// Build computes, for every symbol observed within [start, end], the
// cumulative multiplier series and publishes it as a fresh partition
// per date under the ephemeral cumulative-adjustments root. The cache
// is rebuilt unconditionally on every call — it is never merged or
// incrementally updated, since a changed window invalidates every
// value in it.
func Build(snapshotRoot string, w *store.Writer, ephemeralCumulativeRoot string, start, end int, compression string) error {
	keys, err := store.ListPartitionKeys(snapshotRoot, start, end)
	if err != nil {
		return err
	}

	history := make(map[string][]observation)
	var dates []int
	for _, key := range keys {
		date, ok := store.ParsePartitionKey(key)
		if !ok {
			continue
		}
		dates = append(dates, date)

		rows, existed, err := store.ReadSnapshotPartition(snapshotRoot, date, nil)
		if err != nil {
			return err
		}
		if !existed {
			continue
		}
		for _, r := range rows {
			history[r.Symbol] = append(history[r.Symbol], observation{date: date, factor: r.AdjustmentFactor})
		}
	}

	cumBySymbol := make(map[string]map[int]float64, len(history))
	for symbol, obs := range history {
		cumBySymbol[symbol] = cumulativeSeries(obs)
	}

	for _, date := range dates {
		var rows []model.CumulativeRow
		for symbol, series := range cumBySymbol {
			if v, ok := series[date]; ok {
				rows = append(rows, model.CumulativeRow{TradingDate: date, Symbol: symbol, CumMultiplier: v})
			}
		}
		if err := w.WriteCumulativePartition("cumulative_adjustments", ephemeralCumulativeRoot, date, rows, compression); err != nil {
			return err
		}
	}
	return nil
}

// cumulativeSeries implements the recurrence cum(tk) = 1,
// cum(ti) = cum(ti+1) × f(ti+1), excluding the date's own factor.
// Null factors (no corporate action, or no predecessor) are treated
// as 1.0. obs must be sorted ascending by date, which callers get for
// free by iterating ListPartitionKeys in order.
func cumulativeSeries(obs []observation) map[int]float64 {
	n := len(obs)
	cum := make([]decimal.Decimal, n)
	if n == 0 {
		return nil
	}
	cum[n-1] = decimal.NewFromInt(1)
	for i := n - 2; i >= 0; i-- {
		factor := decimal.NewFromInt(1)
		if obs[i+1].factor != nil {
			factor = decimal.NewFromFloat(*obs[i+1].factor)
		}
		cum[i] = cum[i+1].Mul(factor)
	}

	out := make(map[int]float64, n)
	for i, o := range obs {
		f, _ := cum[i].Round(9).Float64()
		out[o.date] = f
	}
	return out
}
