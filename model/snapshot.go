// Package model defines the domain types shared by the storage,
// enrichment, and query layers: the snapshot row, its enriched
// columns, universe flags, and the error taxonomy callers match on.
package model

// Market identifies which board a security trades on.
type Market string

const (
	MarketPrimary   Market = "primary"
	MarketSecondary Market = "secondary"
	MarketTertiary  Market = "tertiary"
)

// Snapshot is one (trading_date, security_id) observation, carrying
// both the raw fields ingested by S1 and the columns enriched in
// place by S2/S3. AdjustmentFactor and LiquidityRank are pointers so
// that a null value is distinguishable from a computed one. Nil covers
// both "not yet enriched" (S1-only) and "computed, value absent" (no
// predecessor, or a zero prior close); the two are not told apart.
type Snapshot struct {
	TradingDate     int     `parquet:"name=trd_dd, type=INT32"`
	Symbol          string  `parquet:"name=isu_srt_cd, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name            string  `parquet:"name=isu_abbrv, type=BYTE_ARRAY, convertedtype=UTF8"`
	Market          Market  `parquet:"name=market, type=BYTE_ARRAY, convertedtype=UTF8"`
	BasePrice       int64   `parquet:"name=bas_prc, type=INT64"`
	ClosePrice      int64   `parquet:"name=tdd_clsprc, type=INT64"`
	PriceChange     int64   `parquet:"name=cmpprevdd_prc, type=INT64"`
	TradedVolume    int64   `parquet:"name=acc_trdvol, type=INT64"`
	TradedValue     int64   `parquet:"name=acc_trdval, type=INT64"`
	FluctuationRate string  `parquet:"name=fluc_rt, type=BYTE_ARRAY, convertedtype=UTF8"`
	FluctuationType string  `parquet:"name=fluc_tp, type=BYTE_ARRAY, convertedtype=UTF8"`
	AdjustmentFactor *float64 `parquet:"name=adjustment_factor, type=DOUBLE, repetitiontype=OPTIONAL"`
	LiquidityRank    *int32   `parquet:"name=liquidity_rank, type=INT32, repetitiontype=OPTIONAL"`
}

// RawRecord is an upstream payload record before codec decoding: a
// mapping from column name to a string or number, exactly as the
// upstream endpoint returns it. Locale-formatted numeric fields
// (thousands separators) are represented as strings here.
type RawRecord map[string]any

// RequiredFields lists the upstream keys C1 treats as mandatory;
// absence of any of them on a record is a fatal PayloadError for that
// record's date.
var RequiredFields = []string{
	"ISU_SRT_CD",
	"ISU_ABBRV",
	"MKT_ID",
	"BAS_PRC",
	"TDD_CLSPRC",
	"CMPPREVDD_PRC",
	"ACC_TRDVOL",
	"ACC_TRDVAL",
	"FLUC_RT",
	"FLUC_TP",
}

// CumulativeRow is one row of the ephemeral cumulative-multiplier
// cache: the range-dependent factor that rescales a historical raw
// price to the latest scale within a query window.
type CumulativeRow struct {
	TradingDate   int     `parquet:"name=trd_dd, type=INT32"`
	Symbol        string  `parquet:"name=isu_srt_cd, type=BYTE_ARRAY, convertedtype=UTF8"`
	CumMultiplier float64 `parquet:"name=cum_multiplier, type=DOUBLE"`
}
