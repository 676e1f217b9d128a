// Package codec converts upstream snapshot payloads into typed rows
// and defines the on-disk Parquet schema (C1).
package codec

import (
	"strconv"
	"strings"

	"krxdb/model"
)

// marketCodes maps the upstream market identifier to the enumerated
// Market type. Unknown codes are preserved as a raw string market so
// ingestion never fails purely because a new board code appears.
var marketCodes = map[string]model.Market{
	"STK": model.MarketPrimary,
	"KSQ": model.MarketSecondary,
	"KNX": model.MarketTertiary,
	"1":   model.MarketPrimary,
	"2":   model.MarketSecondary,
	"3":   model.MarketTertiary,
}

// DecodeRecord converts one upstream record into a typed Snapshot for
// trading date date. Required fields missing from the record are a
// fatal PayloadError; unknown extra fields are silently ignored.
func DecodeRecord(date int, rec model.RawRecord) (model.Snapshot, error) {
	for _, f := range model.RequiredFields {
		if _, ok := rec[f]; !ok {
			return model.Snapshot{}, &model.PayloadError{
				Date:   date,
				Symbol: stringField(rec, "ISU_SRT_CD"),
				Field:  f,
				Reason: "missing required field",
			}
		}
	}

	symbol := stringField(rec, "ISU_SRT_CD")

	basePrice, err := numericField(rec, "BAS_PRC")
	if err != nil {
		return model.Snapshot{}, &model.PayloadError{Date: date, Symbol: symbol, Field: "BAS_PRC", Reason: err.Error()}
	}
	closePrice, err := numericField(rec, "TDD_CLSPRC")
	if err != nil {
		return model.Snapshot{}, &model.PayloadError{Date: date, Symbol: symbol, Field: "TDD_CLSPRC", Reason: err.Error()}
	}
	priceChange, err := numericField(rec, "CMPPREVDD_PRC")
	if err != nil {
		return model.Snapshot{}, &model.PayloadError{Date: date, Symbol: symbol, Field: "CMPPREVDD_PRC", Reason: err.Error()}
	}
	volume, err := numericField(rec, "ACC_TRDVOL")
	if err != nil {
		return model.Snapshot{}, &model.PayloadError{Date: date, Symbol: symbol, Field: "ACC_TRDVOL", Reason: err.Error()}
	}
	value, err := numericField(rec, "ACC_TRDVAL")
	if err != nil {
		return model.Snapshot{}, &model.PayloadError{Date: date, Symbol: symbol, Field: "ACC_TRDVAL", Reason: err.Error()}
	}

	market, ok := marketCodes[stringField(rec, "MKT_ID")]
	if !ok {
		market = model.Market(stringField(rec, "MKT_ID"))
	}

	return model.Snapshot{
		TradingDate:     date,
		Symbol:          symbol,
		Name:            stringField(rec, "ISU_ABBRV"),
		Market:          market,
		BasePrice:       basePrice,
		ClosePrice:      closePrice,
		PriceChange:     priceChange,
		TradedVolume:    volume,
		TradedValue:     value,
		FluctuationRate: stringField(rec, "FLUC_RT"),
		FluctuationType: stringField(rec, "FLUC_TP"),
	}, nil
}

func stringField(rec model.RawRecord, key string) string {
	v, ok := rec[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return ""
	}
}

// numericField coerces an upstream numeric field, which may arrive as
// a locale-formatted string with thousands separators, into a signed
// 64-bit integer.
func numericField(rec model.RawRecord, key string) (int64, error) {
	v := rec[key]
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if cleaned == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(cleaned, 10, 64)
		if err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, strconv.ErrSyntax
	}
}
