package workspace

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockTimeout is returned when the spec-number lock could not be
// acquired within the requested timeout.
var ErrLockTimeout = errors.New("workspace: timed out acquiring spec number lock")

// SpecNumberLock guards the spec-directory numbering scheme with an
// OS-level exclusive file lock rather than an in-process mutex, since
// multiple agent worktrees backed by the same data directory may race to
// allocate the next spec number from separate processes.
type SpecNumberLock struct {
	fl *flock.Flock
}

// NewSpecNumberLock returns a lock backed by a sentinel file under the data
// directory. The file is created on first use and never removed.
func NewSpecNumberLock(lockFilePath string) *SpecNumberLock {
	return &SpecNumberLock{fl: flock.New(lockFilePath)}
}

// Acquire blocks (with the given timeout) until the lock is held, returning
// a release function. Callers must call release exactly once.
func (l *SpecNumberLock) Acquire(timeout time.Duration) (release func(), err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := l.fl.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}
	if !locked {
		return nil, ErrLockTimeout
	}
	return func() { _ = l.fl.Unlock() }, nil
}
