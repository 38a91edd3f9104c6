package processor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another processor holds the lock.
var ErrAlreadyRunning = errors.New("media cache processor already running")

// LockFileName is the lock file created inside the lock directory.
const LockFileName = "mediacache.lock"

// Unlocker releases a held lock.
type Unlocker interface {
	Unlock() error
}

// Locker acquires the processor lock without waiting. Implementations return
// ErrAlreadyRunning when the lock is held elsewhere.
type Locker interface {
	TryLock() (Unlocker, error)
}

// FlockLocker guards runs with an flock(2) lock file.
type FlockLocker struct {
	path string
}

// NewFlockLocker places the lock file in dir.
func NewFlockLocker(dir string) *FlockLocker {
	return &FlockLocker{path: filepath.Join(dir, LockFileName)}
}

// Path returns the lock file location.
func (l *FlockLocker) Path() string { return l.path }

// TryLock takes the lock or fails with ErrAlreadyRunning.
func (l *FlockLocker) TryLock() (Unlocker, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	lock := flock.New(l.path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock: %s)", ErrAlreadyRunning, l.path)
	}
	return lock, nil
}

// MemoryLocker is an in-process Locker for tests.
type MemoryLocker struct {
	mu   sync.Mutex
	held bool
}

// TryLock takes the lock or fails with ErrAlreadyRunning.
func (l *MemoryLocker) TryLock() (Unlocker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, ErrAlreadyRunning
	}
	l.held = true
	return memoryUnlocker{l}, nil
}

// Held reports whether the lock is taken.
func (l *MemoryLocker) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

type memoryUnlocker struct{ l *MemoryLocker }

func (u memoryUnlocker) Unlock() error {
	u.l.mu.Lock()
	defer u.l.mu.Unlock()
	if !u.l.held {
		return errors.New("lock not held")
	}
	u.l.held = false
	return nil
}

var (
	_ Locker = (*FlockLocker)(nil)
	_ Locker = (*MemoryLocker)(nil)
)
