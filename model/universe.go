package model

// UniverseRow is one row of the persistent universe table: a
// security's membership in each of the four builtin liquidity tiers on one
// trading date, derived from that date's liquidity_rank. Flags are
// nested so in_top_N ⇒ in_top_M for N ≤ M by construction.
type UniverseRow struct {
	TradingDate int    `parquet:"name=trd_dd, type=INT32"`
	Symbol      string `parquet:"name=isu_srt_cd, type=BYTE_ARRAY, convertedtype=UTF8"`
	InTop100    bool   `parquet:"name=in_top_100, type=BOOLEAN"`
	InTop200    bool   `parquet:"name=in_top_200, type=BOOLEAN"`
	InTop500    bool   `parquet:"name=in_top_500, type=BOOLEAN"`
	InTop1000   bool   `parquet:"name=in_top_1000, type=BOOLEAN"`
}

// UniverseTier names one liquidity-rank cutoff. The persisted universe
// table always carries the spec's fixed four (DefaultTiers); a caller
// can additionally register tiers via Config.Universe.Tiers, which
// loader.Get resolves by scanning liquidity_rank directly rather than
// a persisted column, since the universe table's schema is static.
type UniverseTier struct {
	Name    string // e.g. "top_100", used as a universe name in loader.Get
	MaxRank int32
}

// DefaultTiers is the spec's fixed tuple (100, 200, 500, 1000).
func DefaultTiers() []UniverseTier {
	return []UniverseTier{
		{Name: "top_100", MaxRank: 100},
		{Name: "top_200", MaxRank: 200},
		{Name: "top_500", MaxRank: 500},
		{Name: "top_1000", MaxRank: 1000},
	}
}
