package fetch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFetchDayReadsJSONFile(t *testing.T) {
	dir := t.TempDir()
	body := `[{"ISU_SRT_CD":"000010","ISU_ABBRV":"Test","MKT_ID":"STK","BAS_PRC":"1,000","TDD_CLSPRC":"1,050","CMPPREVDD_PRC":"50","ACC_TRDVOL":"100","ACC_TRDVAL":"105,000","FLUC_RT":"5.0","FLUC_TP":"2"}]`
	if err := os.WriteFile(filepath.Join(dir, "20240102.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	f := FileFetcher{Dir: dir}
	records, err := f.FetchDay(20240102)
	if err != nil {
		t.Fatalf("FetchDay failed: %v", err)
	}
	if len(records) != 1 || records[0]["ISU_SRT_CD"] != "000010" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestFetchDayMissingFileIsNonTrading(t *testing.T) {
	f := FileFetcher{Dir: t.TempDir()}
	records, err := f.FetchDay(20240103)
	if err != nil {
		t.Fatalf("FetchDay failed: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records for a missing fixture file, got %v", records)
	}
}

func TestFetchDayMalformedJSONIsError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20240104.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	f := FileFetcher{Dir: dir}
	if _, err := f.FetchDay(20240104); err == nil {
		t.Error("expected an error for malformed fixture JSON")
	}
}
