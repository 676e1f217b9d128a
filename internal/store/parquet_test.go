package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"krxdb/model"
)

func TestReadSnapshotPartitionMissingIsAbsentNotError(t *testing.T) {
	root := t.TempDir()

	rows, existed, err := ReadSnapshotPartition(root, 20240102, nil)
	if err != nil {
		t.Fatalf("expected no error for a missing partition, got %v", err)
	}
	if existed || rows != nil {
		t.Errorf("expected (nil, false) for a missing partition, got (%v, %v)", rows, existed)
	}
}

// brokenRoot builds a root path whose partition directory can never be
// opened: a path component along the way is a regular file rather than
// a directory, so the open fails with ENOTDIR, not ENOENT. That makes
// it a genuine I/O error distinct from a missing partition, without
// depending on permission bits (these tests may run as root).
func brokenRoot(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "blocker")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("setup blocker file: %v", err)
	}
	return filepath.Join(blocker, "root")
}

func TestReadSnapshotPartitionOpenFailureIsStoreError(t *testing.T) {
	root := brokenRoot(t)

	_, existed, err := ReadSnapshotPartition(root, 20240102, nil)
	if err == nil {
		t.Fatal("expected an error for a partition path that cannot be opened")
	}
	var storeErr *model.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *model.StoreError, got %T (%v)", err, err)
	}
	if !existed {
		t.Error("expected existed=true: this is a genuine I/O error, not an absent partition")
	}
}

func TestReadUniversePartitionOpenFailureIsStoreError(t *testing.T) {
	root := brokenRoot(t)

	_, existed, err := ReadUniversePartition(root, 20240102)
	var storeErr *model.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *model.StoreError, got %T (%v)", err, err)
	}
	if !existed {
		t.Error("expected existed=true for a genuine open failure")
	}
}

func TestReadCumulativePartitionOpenFailureIsStoreError(t *testing.T) {
	root := brokenRoot(t)

	_, existed, err := ReadCumulativePartition(root, 20240102)
	var storeErr *model.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *model.StoreError, got %T (%v)", err, err)
	}
	if !existed {
		t.Error("expected existed=true for a genuine open failure")
	}
}
