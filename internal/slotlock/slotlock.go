package slotlock

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/giantswarm/sitepool/internal/fileutil"
)

// Locker manages the file locks for one lease directory. It is safe for
// concurrent use by multiple goroutines.
type Locker struct {
	dir string
	log *slog.Logger

	// mu protects held. Lock files themselves synchronize across processes;
	// the map only tracks this process's handles.
	mu   sync.Mutex
	held map[int]*flock.Flock
}

// New creates a Locker over the given lease directory, creating the
// directory if it does not exist. Panics if dir is empty, which indicates a
// programmer error in the caller's configuration handling.
func New(dir string, log *slog.Logger) (*Locker, error) {
	if dir == "" {
		panic("sitepool: slot lease directory must not be empty")
	}
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("prepare lease directory: %w", err)
	}
	return &Locker{
		dir:  dir,
		log:  log,
		held: make(map[int]*flock.Flock),
	}, nil
}

// TryAcquire attempts to take the lease for the given slot without blocking.
// It returns false when another process (or this one) already holds the
// lease. Callers that receive false should skip the slot and retry on a
// later take.
func (l *Locker) TryAcquire(slot int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[slot]; ok {
		return false, nil
	}

	fl := flock.New(l.path(slot))
	locked, err := fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquiring slot lease %s: %w", fl.Path(), err)
	}
	if !locked {
		return false, nil
	}

	l.held[slot] = fl
	return true, nil
}

// Release gives up the lease for the given slot. Releasing a slot this
// Locker does not hold is a no-op, which keeps shutdown paths idempotent.
//
// The lock file is intentionally left on disk: removing it could invalidate
// a lock concurrently acquired on the same path by another process. Close()
// on the underlying lock unlocks and closes the file descriptor; errors are
// logged at debug level because this is best-effort cleanup.
func (l *Locker) Release(slot int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.release(slot)
}

// release is the lock-held body of Release, shared with Close.
func (l *Locker) release(slot int) {
	fl, ok := l.held[slot]
	if !ok {
		return
	}
	delete(l.held, slot)
	if err := fl.Close(); err != nil {
		l.log.Debug("failed to release slot lease", "path", fl.Path(), "err", err)
	}
}

// Close releases every lease this Locker still holds. Safe to call multiple
// times.
func (l *Locker) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for slot := range l.held {
		l.release(slot)
	}
}

// path returns the lock file path for a slot index.
func (l *Locker) path(slot int) string {
	return filepath.Join(l.dir, fmt.Sprintf("slot-%d.lock", slot))
}
