package enrich

import (
	"sort"

	"krxdb/internal/store"
	"krxdb/model"
)

// LiquidityRanks enriches every partition in [start, end] with a
// dense cross-sectional rank over traded_value descending: rank 1 is
// the most liquid symbol that day, ties share a rank, and ranks form
// a gapless sequence 1..M where M is the number of distinct values.
func LiquidityRanks(snapshotRoot string, w *store.Writer, start, end, rowGroupSize int, compression string) error {
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

		ranks := denseRankDescending(rows)
		for i := range rows {
			r := ranks[i]
			rows[i].LiquidityRank = &r
		}

		if err := w.WriteSnapshotPartition("snapshots", snapshotRoot, date, rows, rowGroupSize, compression); err != nil {
			return err
		}
	}
	return nil
}

// denseRankDescending assigns rank 1 to the largest traded_value,
// sharing ranks across ties and leaving no gaps, aligned positionally
// to the input slice.
func denseRankDescending(rows []model.Snapshot) []int32 {
	type indexed struct {
		idx   int
		value int64
	}
	entries := make([]indexed, len(rows))
	for i, r := range rows {
		entries[i] = indexed{idx: i, value: r.TradedValue}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].value > entries[j].value })

	ranks := make([]int32, len(rows))
	var currentRank int32
	var lastValue int64
	first := true
	for _, e := range entries {
		if first || e.value != lastValue {
			currentRank++
			lastValue = e.value
			first = false
		}
		ranks[e.idx] = currentRank
	}
	return ranks
}
