package codec

import (
	"testing"

	"krxdb/model"
)

func validRecord() model.RawRecord {
	return model.RawRecord{
		"ISU_SRT_CD":    "005930",
		"ISU_ABBRV":     "Samsung Electronics",
		"MKT_ID":        "STK",
		"BAS_PRC":       "70,000",
		"TDD_CLSPRC":    "71,500",
		"CMPPREVDD_PRC": "1,500",
		"ACC_TRDVOL":    "12,345,678",
		"ACC_TRDVAL":    "987,654,321,000",
		"FLUC_RT":       "2.14",
		"FLUC_TP":       "2",
	}
}

func TestDecodeRecordParsesLocaleNumbers(t *testing.T) {
	row, err := DecodeRecord(20240102, validRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.BasePrice != 70000 {
		t.Errorf("expected base price 70000, got %d", row.BasePrice)
	}
	if row.ClosePrice != 71500 {
		t.Errorf("expected close price 71500, got %d", row.ClosePrice)
	}
	if row.TradedValue != 987654321000 {
		t.Errorf("expected traded value 987654321000, got %d", row.TradedValue)
	}
	if row.Market != model.MarketPrimary {
		t.Errorf("expected primary market, got %v", row.Market)
	}
}

func TestDecodeRecordMissingRequiredField(t *testing.T) {
	rec := validRecord()
	delete(rec, "ACC_TRDVAL")

	_, err := DecodeRecord(20240102, rec)
	if err == nil {
		t.Fatal("expected PayloadError for missing field")
	}
	var perr *model.PayloadError
	if pe, ok := err.(*model.PayloadError); !ok {
		t.Fatalf("expected *model.PayloadError, got %T", err)
	} else {
		perr = pe
	}
	if perr.Field != "ACC_TRDVAL" {
		t.Errorf("expected field ACC_TRDVAL, got %s", perr.Field)
	}
}

func TestDecodeRecordUnknownFieldsIgnored(t *testing.T) {
	rec := validRecord()
	rec["SOME_FUTURE_FIELD"] = "unused"

	if _, err := DecodeRecord(20240102, rec); err != nil {
		t.Fatalf("unexpected error with unknown extra field: %v", err)
	}
}

func TestDecodeRecordBadNumericField(t *testing.T) {
	rec := validRecord()
	rec["BAS_PRC"] = "not-a-number"

	if _, err := DecodeRecord(20240102, rec); err == nil {
		t.Fatal("expected error for unparsable numeric field")
	}
}
