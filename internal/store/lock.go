package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"krxdb/model"
)

const lockFileName = ".lock"

type lockPayload struct {
	Token     string    `json:"token"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// Lock is the advisory single-writer lockfile described in §4.9 and
// §9: a lockfile in the store root carrying the holding process's PID
// and start time, broken on startup if the holder is gone.
type Lock struct {
	path  string
	token string
}

// Acquire takes the advisory lock for storeRoot. If a lockfile exists
// and its PID is still alive, Acquire fails fast with a BusyError.
// A stale lock (holder process gone) is reclaimed automatically.
func Acquire(storeRoot string) (*Lock, error) {
	path := filepath.Join(storeRoot, lockFileName)

	if existing, err := readLock(path); err == nil {
		if processAlive(existing.PID) {
			return nil, &model.BusyError{LockPath: path, HolderPID: existing.PID}
		}
		// Stale lock: the holder process no longer exists.
		os.Remove(path)
	}

	if err := os.MkdirAll(storeRoot, 0o755); err != nil {
		return nil, &model.StoreError{Path: storeRoot, Stage: "lock-mkdir", Err: err}
	}

	payload := lockPayload{
		Token:     uuid.New().String(),
		PID:       os.Getpid(),
		StartedAt: time.Now(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal lock payload: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			if existing, rerr := readLock(path); rerr == nil && processAlive(existing.PID) {
				return nil, &model.BusyError{LockPath: path, HolderPID: existing.PID}
			}
		}
		return nil, &model.StoreError{Path: path, Stage: "lock-create", Err: err}
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return nil, &model.StoreError{Path: path, Stage: "lock-write", Err: err}
	}

	return &Lock{path: path, token: payload.Token}, nil
}

// Release removes the lockfile, provided it still belongs to this
// Lock instance (guards against releasing a lock another process has
// since reclaimed).
func (l *Lock) Release() error {
	current, err := readLock(l.path)
	if err != nil {
		return nil
	}
	if current.Token != l.token {
		return nil
	}
	return os.Remove(l.path)
}

func readLock(path string) (lockPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lockPayload{}, err
	}
	var payload lockPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return lockPayload{}, err
	}
	return payload, nil
}

// processAlive reports whether pid refers to a live process by
// sending it the null signal, the standard Unix liveness probe.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
