// Package synclock provides the exclusive advisory file lock a sync run
// takes before touching any backend: a non-blocking flock on
// <dir>/<account>-sync.lock, which is created if missing and never
// truncated, failing fast if another run already holds it.
package synclock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/fenilsonani/mailcore/internal/mailerr"
)

// Lock wraps an exclusive advisory file lock scoped to one account's sync
// run. It is not safe for concurrent use by multiple goroutines; a sync
// run holds exactly one.
type Lock struct {
	flock *flock.Flock
	path  string
}

// ErrAlreadyLocked is returned by Acquire when another process currently
// holds the lock for this account.
var ErrAlreadyLocked = mailerr.New(mailerr.KindSyncConflict, "sync already running for this account")

// Path returns the lock file path for account under the given directory
// (ordinarily a configured sync or temp directory).
func Path(dir, account string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-sync.lock", account))
}

// Acquire takes the exclusive advisory lock for account under dir,
// creating the lock file if needed. It fails fast (no blocking wait) if
// another holder is already present.
func Acquire(dir, account string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, mailerr.Wrap(mailerr.KindIO, "create sync lock directory", err)
	}
	path := Path(dir, account)

	f := flock.New(path)
	locked, err := f.TryLock()
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindIO, "acquire sync lock", err)
	}
	if !locked {
		return nil, ErrAlreadyLocked
	}
	return &Lock{flock: f, path: path}, nil
}

// Release drops the lock. Safe to call once; idempotent on a nil Lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return l.flock.Unlock()
}
