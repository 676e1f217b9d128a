// Package fetch provides a minimal, local-filesystem implementation of
// ingest.Fetcher, so the CLI has something concrete to inject. The
// HTTP client and endpoint catalog that would back a real deployment
// are explicitly out of scope for the core (§1) and are not
// reimplemented here.
package fetch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"krxdb/model"
)

// FileFetcher reads one JSON array of field/value maps per trading
// date from "<dir>/<date>.json". A missing file is treated as a
// non-trading day (zero records), matching S1's contract.
type FileFetcher struct {
	Dir string
}

func (f FileFetcher) FetchDay(date int) ([]model.RawRecord, error) {
	path := filepath.Join(f.Dir, fmt.Sprintf("%d.json", date))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []model.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}
