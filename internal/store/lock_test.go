package store

import (
	"os"
	"testing"

	"krxdb/model"
)

func TestAcquireAndRelease(t *testing.T) {
	root := t.TempDir()

	lock, err := Acquire(root)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := os.Stat(lock.path); err != nil {
		t.Fatalf("expected lockfile to exist: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(lock.path); !os.IsNotExist(err) {
		t.Errorf("expected lockfile removed after release")
	}
}

func TestAcquireFailsWhenHeldByLiveProcess(t *testing.T) {
	root := t.TempDir()

	lock, err := Acquire(root)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer lock.Release()

	_, err = Acquire(root)
	if err == nil {
		t.Fatal("expected second Acquire to fail while lock is held")
	}
	var busy *model.BusyError
	if be, ok := err.(*model.BusyError); !ok {
		t.Fatalf("expected *model.BusyError, got %T", err)
	} else {
		busy = be
	}
	if busy.HolderPID != os.Getpid() {
		t.Errorf("expected holder pid to be this process, got %d", busy.HolderPID)
	}
}

func TestAcquireReclaimsStaleLock(t *testing.T) {
	root := t.TempDir()

	data := []byte(`{"token":"stale-token","pid":999999999,"started_at":"2020-01-01T00:00:00Z"}`)
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(root+"/.lock", data, 0o644); err != nil {
		t.Fatalf("write stale lock: %v", err)
	}

	lock, err := Acquire(root)
	if err != nil {
		t.Fatalf("expected stale lock to be reclaimed, got error: %v", err)
	}
	defer lock.Release()
}
