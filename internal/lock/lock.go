// Package lock provides file-based locking for berth operations that write
// shared state.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("operation is already running")

// Lock represents a file-based lock.
type Lock struct {
	path string
	file *os.File
}

// New creates a lock for the given operation under dir.
func New(dir, operation string) *Lock {
	return &Lock{
		path: filepath.Join(dir, ".berth", "locks", operation+".lock"),
	}
}

func (l *Lock) operation() string {
	return strings.TrimSuffix(filepath.Base(l.path), ".lock")
}

// Acquire attempts to acquire the lock without blocking. Returns ErrLocked
// if the lock is held by another process.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		l.file = nil
		if errors.Is(err, unix.EWOULDBLOCK) {
			return fmt.Errorf("another %s %w", l.operation(), ErrLocked)
		}
		return fmt.Errorf("acquire lock: %w", err)
	}

	// PID for debugging
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	l.file = f
	return nil
}

// Release releases the lock and removes the lock file.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		l.file = nil
		return fmt.Errorf("release lock: %w", err)
	}

	l.file.Close()
	os.Remove(l.path)
	l.file = nil

	return nil
}

// WithLock executes fn while holding the lock.
func WithLock(dir, operation string, fn func() error) error {
	lock := New(dir, operation)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	return fn()
}
