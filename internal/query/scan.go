// Package query implements partition-pruned, row-group-pruned,
// column-pruned scanning over the snapshot/enrichment, universe, and
// cumulative-multiplier tables (C3).
package query

import (
	"fmt"
	"sort"

	"krxdb/internal/store"
	"krxdb/model"
)

// Row is one (date, symbol) observation projected to the requested
// columns — the long-format unit the composer pivots to wide.
type Row struct {
	Date   int
	Symbol string
	Fields map[string]any
}

// ScanSnapshots scans the snapshot/enrichment table over [start, end],
// optionally restricted to symbols and projected to columns. Missing
// partitions (holidays) are silently omitted. Result rows are ordered
// (date ascending, symbol ascending within date).
func ScanSnapshots(root string, start, end int, symbols []string, columns []string) ([]Row, error) {
	keys, err := store.ListPartitionKeys(root, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing partitions under %s: %w", root, err)
	}

	symbolSet := toSet(symbols)

	var out []Row
	for _, key := range keys {
		date, ok := store.ParsePartitionKey(key)
		if !ok {
			continue
		}
		rows, existed, err := store.ReadSnapshotPartition(root, date, symbolSet)
		if err != nil {
			return nil, err
		}
		if !existed {
			continue
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
		for _, r := range rows {
			out = append(out, Row{
				Date:   date,
				Symbol: r.Symbol,
				Fields: projectSnapshot(r, columns),
			})
		}
	}
	return out, nil
}

// ScanUniverseColumn scans the universe table over [start, end] and
// projects a single named boolean column (e.g. "in_top_100") into
// Row.Fields, the shape ScanSnapshots uses for the snapshot table —
// this is how the composer addresses a registry entry whose table is
// "universes" rather than "snapshots".
func ScanUniverseColumn(universeRoot string, start, end int, column string) ([]Row, error) {
	keys, err := store.ListPartitionKeys(universeRoot, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing universe partitions under %s: %w", universeRoot, err)
	}

	var out []Row
	for _, key := range keys {
		date, ok := store.ParsePartitionKey(key)
		if !ok {
			continue
		}
		rows, existed, err := store.ReadUniversePartition(universeRoot, date)
		if err != nil {
			return nil, err
		}
		if !existed {
			continue
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
		for _, r := range rows {
			flag, ok := tierFlag(r, column)
			if !ok {
				return nil, fmt.Errorf("unknown universe column %q", column)
			}
			out = append(out, Row{Date: date, Symbol: r.Symbol, Fields: map[string]any{column: flag}})
		}
	}
	return out, nil
}

// ScanCumulativeColumn scans the ephemeral cumulative-multiplier cache
// over [start, end] and projects column into Row.Fields, the shape
// ScanSnapshots uses for the snapshot table — this is how the composer
// addresses a registry entry whose table is "cumulative_adjustments".
func ScanCumulativeColumn(ephemeralCumulativeRoot string, start, end int, column string) ([]Row, error) {
	if column != "cum_multiplier" {
		return nil, fmt.Errorf("unknown cumulative_adjustments column %q", column)
	}

	keys, err := store.ListPartitionKeys(ephemeralCumulativeRoot, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing cumulative partitions under %s: %w", ephemeralCumulativeRoot, err)
	}

	var out []Row
	for _, key := range keys {
		date, ok := store.ParsePartitionKey(key)
		if !ok {
			continue
		}
		rows, existed, err := store.ReadCumulativePartition(ephemeralCumulativeRoot, date)
		if err != nil {
			return nil, err
		}
		if !existed {
			continue
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
		for _, r := range rows {
			out = append(out, Row{Date: date, Symbol: r.Symbol, Fields: map[string]any{column: r.CumMultiplier}})
		}
	}
	return out, nil
}

// ScanUniverseFlags scans the universe table over [start, end] and
// returns, per date, the set of symbols for which tierColumn is true.
func ScanUniverseFlags(universeRoot string, start, end int, tierColumn string) (map[int]map[string]bool, error) {
	keys, err := store.ListPartitionKeys(universeRoot, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing universe partitions under %s: %w", universeRoot, err)
	}

	result := make(map[int]map[string]bool)
	for _, key := range keys {
		date, ok := store.ParsePartitionKey(key)
		if !ok {
			continue
		}
		rows, existed, err := store.ReadUniversePartition(universeRoot, date)
		if err != nil {
			return nil, err
		}
		if !existed {
			continue
		}
		set := make(map[string]bool)
		for _, r := range rows {
			if flag, ok := tierFlag(r, tierColumn); ok && flag {
				set[r.Symbol] = true
			}
		}
		result[date] = set
	}
	return result, nil
}

// ScanLiquidityRankTier scans the snapshot/enrichment table over
// [start, end] and returns, per date, the set of symbols whose
// liquidity_rank is at or below maxRank. Unlike ScanUniverseFlags,
// this reads liquidity_rank directly rather than a persisted
// in_top_N column — it is how a caller-registered tier outside the
// builtin four (§C's configurable tier list) is evaluated, since the
// universe table's Parquet schema only ever carries the four builtin
// flag columns.
func ScanLiquidityRankTier(snapshotRoot string, start, end int, maxRank int32) (map[int]map[string]bool, error) {
	rows, err := ScanSnapshots(snapshotRoot, start, end, nil, []string{"liquidity_rank"})
	if err != nil {
		return nil, err
	}

	result := make(map[int]map[string]bool)
	for _, r := range rows {
		rank, ok := r.Fields["liquidity_rank"].(*int32)
		if !ok || rank == nil || *rank > maxRank {
			continue
		}
		if result[r.Date] == nil {
			result[r.Date] = make(map[string]bool)
		}
		result[r.Date][r.Symbol] = true
	}
	return result, nil
}

// ScanCumulative scans the ephemeral cumulative-multiplier cache over
// [start, end], returning date -> symbol -> multiplier.
func ScanCumulative(ephemeralCumulativeRoot string, start, end int) (map[int]map[string]float64, error) {
	keys, err := store.ListPartitionKeys(ephemeralCumulativeRoot, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing cumulative partitions under %s: %w", ephemeralCumulativeRoot, err)
	}

	result := make(map[int]map[string]float64)
	for _, key := range keys {
		date, ok := store.ParsePartitionKey(key)
		if !ok {
			continue
		}
		rows, existed, err := store.ReadCumulativePartition(ephemeralCumulativeRoot, date)
		if err != nil {
			return nil, err
		}
		if !existed {
			continue
		}
		set := make(map[string]float64, len(rows))
		for _, r := range rows {
			set[r.Symbol] = r.CumMultiplier
		}
		result[date] = set
	}
	return result, nil
}

func toSet(symbols []string) map[string]bool {
	if len(symbols) == 0 {
		return nil
	}
	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set
}

// projectSnapshot selects only the requested physical columns from a
// decoded row, implementing column pruning at the API boundary: scan
// never hands the caller a column it did not ask for.
func projectSnapshot(row model.Snapshot, columns []string) map[string]any {
	fields := make(map[string]any, len(columns))
	for _, c := range columns {
		switch c {
		case "isu_abbrv":
			fields[c] = row.Name
		case "market":
			fields[c] = string(row.Market)
		case "bas_prc":
			fields[c] = row.BasePrice
		case "tdd_clsprc":
			fields[c] = row.ClosePrice
		case "cmpprevdd_prc":
			fields[c] = row.PriceChange
		case "acc_trdvol":
			fields[c] = row.TradedVolume
		case "acc_trdval":
			fields[c] = row.TradedValue
		case "fluc_rt":
			fields[c] = row.FluctuationRate
		case "fluc_tp":
			fields[c] = row.FluctuationType
		case "adjustment_factor":
			fields[c] = row.AdjustmentFactor
		case "liquidity_rank":
			fields[c] = row.LiquidityRank
		}
	}
	return fields
}

func tierFlag(row model.UniverseRow, tierColumn string) (bool, bool) {
	switch tierColumn {
	case "in_top_100":
		return row.InTop100, true
	case "in_top_200":
		return row.InTop200, true
	case "in_top_500":
		return row.InTop500, true
	case "in_top_1000":
		return row.InTop1000, true
	}
	return false, false
}
