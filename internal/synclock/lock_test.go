package synclock

import (
	"testing"

	"github.com/fenilsonani/mailcore/internal/mailerr"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "work")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
}

func TestAcquireFailsWhenHeld(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir, "work")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer first.Release()

	_, err = Acquire(dir, "work")
	if !mailerr.Is(err, mailerr.KindSyncConflict) {
		t.Errorf("second Acquire() error = %v, want KindSyncConflict", err)
	}
}

func TestAcquireIndependentAccounts(t *testing.T) {
	dir := t.TempDir()

	a, err := Acquire(dir, "work")
	if err != nil {
		t.Fatalf("Acquire(work) error = %v", err)
	}
	defer a.Release()

	b, err := Acquire(dir, "personal")
	if err != nil {
		t.Fatalf("Acquire(personal) error = %v", err)
	}
	defer b.Release()
}
