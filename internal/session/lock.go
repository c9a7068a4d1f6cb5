package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the edit lock.
var ErrLocked = errors.New("another songrank command is modifying the list")

// EditLock is a held cross-process lock.
type EditLock struct {
	lock *flock.Flock
}

// AcquireEditLock takes the lock file at path without waiting.
func AcquireEditLock(path string) (*EditLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &EditLock{lock: lock}, nil
}

// Path returns the lock file.
func (l *EditLock) Path() string {
	return l.lock.Path()
}

// Release unlocks. It is safe to call on a nil lock.
func (l *EditLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
