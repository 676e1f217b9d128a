package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"krxdb/model"
)

// Writer drives the atomic stage/backup/publish pathway for every
// partitioned table (snapshot/enrichment, universes, cumulative
// cache). Staging and backup directories are namespaced per table so
// two tables never contend for the same transient path.
type Writer struct {
	EphemeralRoot string
}

func NewWriter(ephemeralRoot string) *Writer {
	return &Writer{EphemeralRoot: ephemeralRoot}
}

func (w *Writer) stagingDir(table, key string) string {
	return filepath.Join(w.EphemeralRoot, "staging", table, key)
}

func (w *Writer) backupDir(table, key string) string {
	return filepath.Join(w.EphemeralRoot, "backup", table, key)
}

// WritePartition stages a new partition under the staging root,
// backs up any prior version, renames the staged partition into
// place, and best-effort deletes the backup — the four-step contract
// §4.2 requires. build populates stagingDir with the partition's
// single columnar file.
func (w *Writer) WritePartition(table, finalRoot, key string, build func(stagingDir string) error) error {
	staging := w.stagingDir(table, key)
	backup := w.backupDir(table, key)
	final := filepath.Join(finalRoot, key)

	if err := os.RemoveAll(staging); err != nil {
		return &model.StoreError{Path: staging, Stage: "stage-cleanup", Err: err}
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return &model.StoreError{Path: staging, Stage: "stage-mkdir", Err: err}
	}
	if err := build(staging); err != nil {
		os.RemoveAll(staging)
		return &model.StoreError{Path: staging, Stage: "stage-build", Err: err}
	}

	if _, err := os.Stat(final); err == nil {
		if err := os.RemoveAll(backup); err != nil {
			return &model.StoreError{Path: backup, Stage: "backup-cleanup", Err: err}
		}
		if err := os.MkdirAll(filepath.Dir(backup), 0o755); err != nil {
			return &model.StoreError{Path: backup, Stage: "backup-mkdir", Err: err}
		}
		if err := os.Rename(final, backup); err != nil {
			return &model.StoreError{Path: final, Stage: "backup", Err: err}
		}
	} else if !os.IsNotExist(err) {
		return &model.StoreError{Path: final, Stage: "stat-final", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return &model.StoreError{Path: final, Stage: "final-mkdir", Err: err}
	}
	if err := os.Rename(staging, final); err != nil {
		// Attempt to restore the backup so the store is left in the
		// pre-write state rather than with neither copy present.
		if _, statErr := os.Stat(backup); statErr == nil {
			os.Rename(backup, final)
		}
		return &model.StoreError{Path: final, Stage: "publish", Err: err}
	}

	os.RemoveAll(backup)
	return nil
}

// Reconcile restores a table root to a coherent state after a crash,
// per §4.2's startup contract: any backup left over from an
// interrupted write is restored if the final partition is missing, or
// discarded if the final partition is already present; any staging
// debris is discarded outright since it was never published.
func (w *Writer) Reconcile(table, finalRoot string) error {
	stagingRoot := filepath.Join(w.EphemeralRoot, "staging", table)
	backupRoot := filepath.Join(w.EphemeralRoot, "backup", table)

	if err := os.RemoveAll(stagingRoot); err != nil {
		return &model.StoreError{Path: stagingRoot, Stage: "reconcile-staging", Err: err}
	}

	entries, err := os.ReadDir(backupRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &model.StoreError{Path: backupRoot, Stage: "reconcile-list-backup", Err: err}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		key := entry.Name()
		backupPath := filepath.Join(backupRoot, key)
		finalPath := filepath.Join(finalRoot, key)

		if _, err := os.Stat(finalPath); err == nil {
			// Final partition already committed (crash was between
			// steps 3 and 4): the backup is leftover debris.
			if err := os.RemoveAll(backupPath); err != nil {
				return &model.StoreError{Path: backupPath, Stage: "reconcile-delete-backup", Err: err}
			}
			continue
		}

		// Final partition is missing (crash was between steps 2 and
		// 3): restore the backup into place.
		if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
			return &model.StoreError{Path: finalPath, Stage: "reconcile-mkdir", Err: err}
		}
		if err := os.Rename(backupPath, finalPath); err != nil {
			return &model.StoreError{Path: finalPath, Stage: "reconcile-restore", Err: err}
		}
	}

	return nil
}

// ListPartitionKeys returns the sorted partition directory names under
// root whose key parses as a valid TRD_DD partition and whose date
// lies within [start, end] inclusive.
func ListPartitionKeys(root string, start, end int) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	var keys []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		date, ok := ParsePartitionKey(entry.Name())
		if !ok {
			continue
		}
		if date < start || date > end {
			continue
		}
		keys = append(keys, entry.Name())
	}
	sort.Strings(keys)
	return keys, nil
}
