// Package lock claims staging areas for exclusive recovery, so concurrent
// gc runs never replay the same staged copies twice.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fileguard-project/fileguard/pkg/errclass"
	"github.com/fileguard-project/fileguard/pkg/fsutil"
	"github.com/fileguard-project/fileguard/pkg/model"
)

// FileName is the claim file inside a staging area.
const FileName = "gc.lock"

// DefaultTTL bounds how long a crashed gc run blocks an area.
const DefaultTTL = 10 * time.Minute

// Manager handles staging area claims.
type Manager struct {
	ttl time.Duration
	mu  sync.Mutex
}

// NewManager creates a lock manager. A non-positive ttl means DefaultTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{ttl: ttl}
}

// Acquire claims area. An expired claim is taken over with a higher
// fencing token; a live one is E_LOCK_CONFLICT.
func (m *Manager) Acquire(area string) (*model.LockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lockPath := filepath.Join(area, FileName)

	// O_CREATE|O_EXCL makes the first claimant win
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock: %w", err)
		}
		return m.steal(area, lockPath)
	}
	defer file.Close()

	rec := m.newRecord(1)
	if err := writeLock(file, rec); err != nil {
		os.Remove(lockPath)
		return nil, err
	}
	return rec, nil
}

func (m *Manager) steal(area, lockPath string) (*model.LockRecord, error) {
	prev, err := readLock(lockPath)
	if err != nil {
		return nil, fmt.Errorf("read existing lock: %w", err)
	}
	if !prev.IsExpired(time.Now()) {
		return nil, errclass.ErrLockConflict.WithMessagef("%s is being collected by pid %d on %s", area, prev.PID, prev.Hostname)
	}

	rec := m.newRecord(prev.FencingToken + 1)
	if err := updateLock(lockPath, rec); err != nil {
		return nil, fmt.Errorf("steal lock: %w", err)
	}

	// another stealer may have written after us
	cur, err := readLock(lockPath)
	if err != nil {
		return nil, fmt.Errorf("reread lock: %w", err)
	}
	if cur.HolderNonce != rec.HolderNonce {
		return nil, errclass.ErrLockConflict.WithMessagef("%s was claimed concurrently", area)
	}
	return rec, nil
}

// Release frees the claim held with holderNonce. A missing lock file is
// not an error: removing the area removes the claim with it.
func (m *Manager) Release(area, holderNonce string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lockPath := filepath.Join(area, FileName)
	rec, err := readLock(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read lock: %w", err)
	}
	if rec.HolderNonce != holderNonce {
		return errclass.ErrLockNotHeld.WithMessage("nonce mismatch")
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock: %w", err)
	}
	return nil
}

// Status returns the current claim on area, or nil when unclaimed.
func (m *Manager) Status(area string) (*model.LockRecord, error) {
	rec, err := readLock(filepath.Join(area, FileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return rec, err
}

func (m *Manager) newRecord(token int64) *model.LockRecord {
	host, _ := os.Hostname()
	now := time.Now().UTC()
	return &model.LockRecord{
		HolderNonce:  uuid.NewString(),
		PID:          os.Getpid(),
		Hostname:     host,
		AcquiredAt:   now,
		ExpiresAt:    now.Add(m.ttl),
		FencingToken: token,
	}
}

func readLock(path string) (*model.LockRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec model.LockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse lock: %w", err)
	}
	return &rec, nil
}

func writeLock(file *os.File, rec *model.LockRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("write lock: %w", err)
	}
	return file.Sync()
}

func updateLock(path string, rec *model.LockRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}
	return fsutil.AtomicWrite(path, data, 0600)
}
