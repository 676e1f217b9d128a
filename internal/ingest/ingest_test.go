package ingest

import (
	"errors"
	"testing"

	"krxdb/internal/store"
	"krxdb/model"
)

type fakeFetcher struct {
	records map[int][]model.RawRecord
	errs    map[int]error
}

func (f *fakeFetcher) FetchDay(date int) ([]model.RawRecord, error) {
	if err, ok := f.errs[date]; ok {
		return nil, err
	}
	return f.records[date], nil
}

func validRecord(symbol string) model.RawRecord {
	return model.RawRecord{
		"ISU_SRT_CD":    symbol,
		"ISU_ABBRV":     "Test Co",
		"MKT_ID":        "STK",
		"BAS_PRC":       "1,000",
		"TDD_CLSPRC":    "1,050",
		"CMPPREVDD_PRC": "50",
		"ACC_TRDVOL":    "100",
		"ACC_TRDVAL":    "105,000",
		"FLUC_RT":       "5.0",
		"FLUC_TP":       "2",
	}
}

func TestDayWritesPartition(t *testing.T) {
	root := t.TempDir()
	w := store.NewWriter(t.TempDir())
	fetcher := &fakeFetcher{records: map[int][]model.RawRecord{
		20240102: {validRecord("000010"), validRecord("000020")},
	}}

	result, err := Day(w, root, fetcher, 20240102, 1000, "snappy", true)
	if err != nil {
		t.Fatalf("Day failed: %v", err)
	}
	if result.RowCount != 2 || result.NonTrading || result.Skipped {
		t.Errorf("unexpected result: %+v", result)
	}

	rows, existed, err := store.ReadSnapshotPartition(root, 20240102, nil)
	if err != nil || !existed {
		t.Fatalf("expected partition to exist, err=%v existed=%v", err, existed)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].AdjustmentFactor != nil {
		t.Errorf("expected adjustment_factor null on fresh ingest")
	}
}

func TestDayNonTradingDayCreatesNoPartition(t *testing.T) {
	root := t.TempDir()
	w := store.NewWriter(t.TempDir())
	fetcher := &fakeFetcher{records: map[int][]model.RawRecord{20240103: {}}}

	result, err := Day(w, root, fetcher, 20240103, 1000, "snappy", true)
	if err != nil {
		t.Fatalf("Day failed: %v", err)
	}
	if !result.NonTrading || result.RowCount != 0 {
		t.Errorf("expected non-trading result with zero rows, got %+v", result)
	}

	_, existed, err := store.ReadSnapshotPartition(root, 20240103, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existed {
		t.Error("expected no partition for a non-trading day")
	}
}

func TestDaySkipsWhenAlreadyPresent(t *testing.T) {
	root := t.TempDir()
	w := store.NewWriter(t.TempDir())
	fetcher := &fakeFetcher{records: map[int][]model.RawRecord{20240102: {validRecord("000010")}}}

	if _, err := Day(w, root, fetcher, 20240102, 1000, "snappy", true); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	fetcher.records[20240102] = []model.RawRecord{validRecord("000010"), validRecord("000020")}
	result, err := Day(w, root, fetcher, 20240102, 1000, "snappy", true)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if !result.Skipped {
		t.Error("expected skip-if-present to no-op on second call")
	}

	rows, _, _ := store.ReadSnapshotPartition(root, 20240102, nil)
	if len(rows) != 1 {
		t.Errorf("expected partition to remain at 1 row after skipped re-ingest, got %d", len(rows))
	}
}

func TestDayFetchErrorIsAnnotated(t *testing.T) {
	root := t.TempDir()
	w := store.NewWriter(t.TempDir())
	fetcher := &fakeFetcher{errs: map[int]error{20240102: errors.New("connection reset")}}

	_, err := Day(w, root, fetcher, 20240102, 1000, "snappy", true)
	if err == nil {
		t.Fatal("expected fetch error to propagate")
	}
	var fe *model.FetchError
	if e, ok := err.(*model.FetchError); !ok {
		t.Fatalf("expected *model.FetchError, got %T", err)
	} else {
		fe = e
	}
	if fe.Date != 20240102 {
		t.Errorf("expected date annotated on FetchError, got %d", fe.Date)
	}
}

func TestDaySchemaViolationIsFatalForDateOnly(t *testing.T) {
	root := t.TempDir()
	w := store.NewWriter(t.TempDir())
	bad := validRecord("000010")
	delete(bad, "ACC_TRDVAL")
	fetcher := &fakeFetcher{records: map[int][]model.RawRecord{20240102: {bad}}}

	_, err := Day(w, root, fetcher, 20240102, 1000, "snappy", true)
	if err == nil {
		t.Fatal("expected payload error for missing required field")
	}
	if _, ok := err.(*model.PayloadError); !ok {
		t.Fatalf("expected *model.PayloadError, got %T", err)
	}
}
