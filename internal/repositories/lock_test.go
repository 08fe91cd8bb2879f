package repositories

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func TestCriticalSection(t *testing.T) {
	t.Run("same path shares one mutex", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.db")
		a := NewCriticalSection(path)
		b := NewCriticalSection(filepath.Join(filepath.Dir(path), ".", "ledger.db"))

		if a.Key() != b.Key() {
			t.Fatalf("keys differ: %s vs %s", a.Key(), b.Key())
		}
		if a.mu != b.mu {
			t.Error("sections on the same path must share a mutex")
		}
	})

	t.Run("waits for another holder of the file lock", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.db")
		other := flock.New(path + ".lock")
		if err := other.Lock(); err != nil {
			t.Fatalf("failed to take lock: %v", err)
		}

		cs := NewCriticalSection(path)
		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()

		ran := false
		err := cs.Do(ctx, func() error { ran = true; return nil })
		if err == nil || ran {
			t.Fatal("expected Do to give up while the file is locked")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error, got %v", err)
		}

		other.Unlock()
		if err := cs.Do(context.Background(), func() error { ran = true; return nil }); err != nil || !ran {
			t.Errorf("expected Do to run after release, err=%v", err)
		}
	})

	t.Run("propagates fn error", func(t *testing.T) {
		cs := NewCriticalSection(filepath.Join(t.TempDir(), "ledger.db"))
		want := errors.New("boom")
		if err := cs.Do(context.Background(), func() error { return want }); !errors.Is(err, want) {
			t.Errorf("expected fn error, got %v", err)
		}
	})
}
