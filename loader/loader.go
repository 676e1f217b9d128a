// Package loader implements the public query composer (C10): the
// entry point an analyst uses to prepare a store over a window and
// pull wide-format tables out of it.
package loader

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"krxdb/internal/ingest"
	"krxdb/internal/pipeline"
	"krxdb/internal/query"
	"krxdb/internal/registry"
	"krxdb/internal/store"
	"krxdb/model"
)

// Window is a closed date range [Start, End], encoded as YYYYMMDD
// integers.
type Window struct {
	Start int
	End   int
}

// Loader is a range-locked query handle bound to a fixed window: its
// ephemeral cumulative-multiplier cache is valid only for that window.
type Loader struct {
	roots    pipeline.Roots
	window   Window
	registry *registry.Registry
	tiers    []model.UniverseTier
}

// New prepares the store over [start, end] (running the full
// orchestrator contract) and returns a Loader bound to that window,
// plus the prepare summary. reg may be nil, in which case the built-in
// default field registry is used. tiers registers universe names
// beyond the builtin four (top_100/200/500/1000); a nil or empty
// slice means only the builtin tiers are queryable by name.
func New(storeRoot, ephemeralRoot string, start, end int, fetcher ingest.Fetcher, reg *registry.Registry, tiers []model.UniverseTier, opts pipeline.Options, reporter pipeline.Reporter) (*Loader, pipeline.Summary, error) {
	roots := pipeline.Roots{
		SnapshotRoot:            filepath.Join(storeRoot, "snapshots"),
		UniverseRoot:            filepath.Join(storeRoot, "universes"),
		EphemeralCumulativeRoot: filepath.Join(ephemeralRoot, "cumulative_adjustments"),
	}

	summary, err := pipeline.Prepare(storeRoot, ephemeralRoot, roots, fetcher, start, end, opts, reporter)
	if err != nil {
		return nil, summary, err
	}

	if reg == nil {
		reg = registry.Default()
	}

	return &Loader{roots: roots, window: Window{Start: start, End: end}, registry: reg, tiers: tiers}, summary, nil
}

// GetTradingDates returns the sorted list of trading dates actually
// present in the store within the loader's window.
func (l *Loader) GetTradingDates() ([]int, error) {
	keys, err := store.ListPartitionKeys(l.roots.SnapshotRoot, l.window.Start, l.window.End)
	if err != nil {
		return nil, err
	}
	dates := make([]int, 0, len(keys))
	for _, key := range keys {
		if date, ok := store.ParsePartitionKey(key); ok {
			dates = append(dates, date)
		}
	}
	return dates, nil
}

// Get implements the query composer contract: resolve field, validate
// the sub-window, scan, apply universe masking, apply adjustment, and
// pivot to a wide table.
func (l *Loader) Get(field string, universe any, subWindow *Window, adjusted bool) (*WideTable, error) {
	entry, err := l.registry.Resolve(field)
	if err != nil {
		return nil, err
	}

	start, end := l.window.Start, l.window.End
	if subWindow != nil {
		if subWindow.Start < l.window.Start || subWindow.End > l.window.End {
			return nil, &model.WindowError{
				RequestStart: subWindow.Start, RequestEnd: subWindow.End,
				LoaderStart: l.window.Start, LoaderEnd: l.window.End,
			}
		}
		start, end = subWindow.Start, subWindow.End
	}

	rows, err := l.scanEntry(entry, start, end)
	if err != nil {
		return nil, err
	}

	membership, err := l.resolveUniverse(universe, start, end)
	if err != nil {
		return nil, err
	}

	var multipliers map[int]map[string]float64
	if adjusted && entry.Adjustable {
		multipliers, err = query.ScanCumulative(l.roots.EphemeralCumulativeRoot, start, end)
		if err != nil {
			return nil, err
		}
	}

	table := newWideTable()
	for _, r := range rows {
		if membership != nil && !membership[r.Date][r.Symbol] {
			continue
		}
		value := r.Fields[entry.Column]
		if multipliers != nil {
			multiplier := 1.0
			if m, ok := multipliers[r.Date][r.Symbol]; ok {
				multiplier = m
			}
			value = adjustValue(value, multiplier)
		}
		table.set(r.Date, r.Symbol, value)
	}
	return table, nil
}

// scanEntry routes a resolved registry entry to the physical table it
// names (§4.11's "(table, column, adjustable?) triple" is meant to
// select which table the composer scans, not just document it).
func (l *Loader) scanEntry(entry registry.Entry, start, end int) ([]query.Row, error) {
	switch entry.Table {
	case "", "snapshots":
		return query.ScanSnapshots(l.roots.SnapshotRoot, start, end, nil, []string{entry.Column})
	case "universes":
		return query.ScanUniverseColumn(l.roots.UniverseRoot, start, end, entry.Column)
	case "cumulative_adjustments":
		return query.ScanCumulativeColumn(l.roots.EphemeralCumulativeRoot, start, end, entry.Column)
	default:
		return nil, fmt.Errorf("registry entry names unknown table %q", entry.Table)
	}
}

// resolveUniverse accepts nil (no filter), []string (an explicit,
// date-uniform symbol list), or string (a named tier). A builtin tier
// name (e.g. "top_100") resolves per-date from the persisted universe
// table's in_top_N column. A tier registered via l.tiers but outside
// the builtin four has no persisted column — it is resolved by
// scanning liquidity_rank directly against the tier's MaxRank cutoff.
func (l *Loader) resolveUniverse(universe any, start, end int) (map[int]map[string]bool, error) {
	switch u := universe.(type) {
	case nil:
		return nil, nil
	case []string:
		set := make(map[string]bool, len(u))
		for _, s := range u {
			set[s] = true
		}
		dates, err := l.datesInRange(start, end)
		if err != nil {
			return nil, err
		}
		membership := make(map[int]map[string]bool, len(dates))
		for _, d := range dates {
			membership[d] = set
		}
		return membership, nil
	case string:
		if tierColumn := tierColumnForName(u); tierColumn != "" {
			return query.ScanUniverseFlags(l.roots.UniverseRoot, start, end, tierColumn)
		}
		for _, tier := range l.tiers {
			if tier.Name == u {
				return query.ScanLiquidityRankTier(l.roots.SnapshotRoot, start, end, tier.MaxRank)
			}
		}
		return nil, fmt.Errorf("unknown universe name %q", u)
	default:
		return nil, fmt.Errorf("unsupported universe type %T", universe)
	}
}

func (l *Loader) datesInRange(start, end int) ([]int, error) {
	keys, err := store.ListPartitionKeys(l.roots.SnapshotRoot, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(keys))
	for _, key := range keys {
		if date, ok := store.ParsePartitionKey(key); ok {
			out = append(out, date)
		}
	}
	return out, nil
}

func tierColumnForName(name string) string {
	for _, tier := range model.DefaultTiers() {
		if tier.Name == name {
			return "in_" + name
		}
	}
	return ""
}

// adjustValue rescales an integer price field by multiplier, rounding
// to the nearest integer with ties to even (bankers' rounding), per
// §4.10 step 5. Values that are not int64 pass through unchanged.
func adjustValue(value any, multiplier float64) any {
	v, ok := value.(int64)
	if !ok {
		return value
	}
	return int64(math.RoundToEven(float64(v) * multiplier))
}

// WideTable is the pivoted query result: row index = trading dates
// ascending, column set = symbols ascending, cells = the resolved
// field value or nil when the (date, symbol) combination is absent.
type WideTable struct {
	dates   []int
	symbols []string
	cells   map[int]map[string]any
	seenD   map[int]bool
	seenS   map[string]bool
}

func newWideTable() *WideTable {
	return &WideTable{
		cells: make(map[int]map[string]any),
		seenD: make(map[int]bool),
		seenS: make(map[string]bool),
	}
}

func (t *WideTable) set(date int, symbol string, value any) {
	if !t.seenD[date] {
		t.seenD[date] = true
		t.dates = append(t.dates, date)
	}
	if !t.seenS[symbol] {
		t.seenS[symbol] = true
		t.symbols = append(t.symbols, symbol)
	}
	if t.cells[date] == nil {
		t.cells[date] = make(map[string]any)
	}
	t.cells[date][symbol] = value
}

// Dates returns the row index, trading dates ascending.
func (t *WideTable) Dates() []int {
	out := make([]int, len(t.dates))
	copy(out, t.dates)
	sort.Ints(out)
	return out
}

// Symbols returns the column set, symbols ascending.
func (t *WideTable) Symbols() []string {
	out := make([]string, len(t.symbols))
	copy(out, t.symbols)
	sort.Strings(out)
	return out
}

// Value returns the cell at (date, symbol) and whether it was present.
// A present-but-nil cell and an absent cell are both reported as
// !ok — callers treat both as the wide table's null.
func (t *WideTable) Value(date int, symbol string) (any, bool) {
	row, ok := t.cells[date]
	if !ok {
		return nil, false
	}
	v, ok := row[symbol]
	if !ok || v == nil {
		return nil, false
	}
	switch p := v.(type) {
	case *float64:
		if p == nil {
			return nil, false
		}
	case *int32:
		if p == nil {
			return nil, false
		}
	}
	return v, true
}
