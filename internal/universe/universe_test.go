package universe

import (
	"testing"

	"krxdb/internal/store"
	"krxdb/model"
)

func rank(v int32) *int32 { return &v }

func seedRanked(t *testing.T, w *store.Writer, root string, date int, rows []model.Snapshot) {
	t.Helper()
	if err := w.WriteSnapshotPartition("snapshots", root, date, rows, 1000, "snappy"); err != nil {
		t.Fatalf("seed %d: %v", date, err)
	}
}

func TestBuildFlagsRespectTierBoundaries(t *testing.T) {
	snapRoot := t.TempDir()
	w := store.NewWriter(t.TempDir())
	universeRoot := t.TempDir()
	const d1 = 20240101

	seedRanked(t, w, snapRoot, d1, []model.Snapshot{
		{TradingDate: d1, Symbol: "A", LiquidityRank: rank(1)},
		{TradingDate: d1, Symbol: "B", LiquidityRank: rank(150)},
		{TradingDate: d1, Symbol: "C", LiquidityRank: rank(600)},
		{TradingDate: d1, Symbol: "D", LiquidityRank: rank(1500)},
	})

	if err := Build(snapRoot, w, universeRoot, d1, d1, "snappy"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	rows, existed, err := store.ReadUniversePartition(universeRoot, d1)
	if err != nil || !existed {
		t.Fatalf("read universe: err=%v existed=%v", err, existed)
	}

	bySymbol := make(map[string]model.UniverseRow, len(rows))
	for _, r := range rows {
		bySymbol[r.Symbol] = r
	}

	cases := []struct {
		symbol                           string
		top100, top200, top500, top1000 bool
	}{
		{"A", true, true, true, true},
		{"B", false, true, true, true},
		{"C", false, false, true, true},
		{"D", false, false, false, true},
	}
	for _, c := range cases {
		r, ok := bySymbol[c.symbol]
		if !ok {
			t.Fatalf("missing universe row for %s", c.symbol)
		}
		if r.InTop100 != c.top100 || r.InTop200 != c.top200 || r.InTop500 != c.top500 || r.InTop1000 != c.top1000 {
			t.Errorf("%s: flags = (%v,%v,%v,%v), want (%v,%v,%v,%v)",
				c.symbol, r.InTop100, r.InTop200, r.InTop500, r.InTop1000,
				c.top100, c.top200, c.top500, c.top1000)
		}
	}
}

// TestBuildSubsetInvariant verifies the spec's tier-subset invariant:
// in_top_100 ⇒ in_top_200 ⇒ in_top_500 ⇒ in_top_1000, for every row.
func TestBuildSubsetInvariant(t *testing.T) {
	snapRoot := t.TempDir()
	w := store.NewWriter(t.TempDir())
	universeRoot := t.TempDir()
	const d1 = 20240101

	seedRanked(t, w, snapRoot, d1, []model.Snapshot{
		{TradingDate: d1, Symbol: "A", LiquidityRank: rank(50)},
		{TradingDate: d1, Symbol: "B", LiquidityRank: rank(250)},
		{TradingDate: d1, Symbol: "C", LiquidityRank: rank(999)},
		{TradingDate: d1, Symbol: "D", LiquidityRank: rank(5000)},
	})

	if err := Build(snapRoot, w, universeRoot, d1, d1, "snappy"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	rows, _, err := store.ReadUniversePartition(universeRoot, d1)
	if err != nil {
		t.Fatalf("read universe: %v", err)
	}
	for _, r := range rows {
		if r.InTop100 && !r.InTop200 {
			t.Errorf("%s: in_top_100 but not in_top_200", r.Symbol)
		}
		if r.InTop200 && !r.InTop500 {
			t.Errorf("%s: in_top_200 but not in_top_500", r.Symbol)
		}
		if r.InTop500 && !r.InTop1000 {
			t.Errorf("%s: in_top_500 but not in_top_1000", r.Symbol)
		}
	}
}

// TestBuildExcludesUnrankedSymbols verifies that a symbol without a
// liquidity_rank (S3 not yet run for that date) is omitted from the
// universe partition rather than defaulted into or out of a tier.
func TestBuildExcludesUnrankedSymbols(t *testing.T) {
	snapRoot := t.TempDir()
	w := store.NewWriter(t.TempDir())
	universeRoot := t.TempDir()
	const d1 = 20240101

	seedRanked(t, w, snapRoot, d1, []model.Snapshot{
		{TradingDate: d1, Symbol: "A", LiquidityRank: rank(1)},
		{TradingDate: d1, Symbol: "U"},
	})

	if err := Build(snapRoot, w, universeRoot, d1, d1, "snappy"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	rows, _, err := store.ReadUniversePartition(universeRoot, d1)
	if err != nil {
		t.Fatalf("read universe: %v", err)
	}
	if len(rows) != 1 || rows[0].Symbol != "A" {
		t.Errorf("expected only the ranked symbol to appear, got %+v", rows)
	}
}
