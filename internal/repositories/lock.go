package repositories

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

// lockRetryDelay is how often a blocked caller retries the file lock.
const lockRetryDelay = 50 * time.Millisecond

// sections maps a cleaned ledger path to the mutex serialising goroutines of this process.
var sections sync.Map

// CriticalSection serialises read-modify-write cycles on one ledger file.
//
// Goroutines in this process are ordered by a mutex shared by every section opened on the
// same path. Other processes are excluded with an advisory lock on "<ledger>.lock".
type CriticalSection struct {
	key  string
	mu   *sync.Mutex
	file *flock.Flock
}

// NewCriticalSection returns the section guarding the ledger at path.
func NewCriticalSection(path string) *CriticalSection {
	key := path
	if path != shared.MemoryDatabase {
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		key = filepath.Clean(key)
	}

	mu, _ := sections.LoadOrStore(key, &sync.Mutex{})
	cs := &CriticalSection{key: key, mu: mu.(*sync.Mutex)}
	if path != shared.MemoryDatabase {
		cs.file = flock.New(key + ".lock")
	}
	return cs
}

// Key returns the normalized path the section is keyed on.
func (c *CriticalSection) Key() string { return c.key }

// Do runs fn while holding both the in-process mutex and the file lock.
func (c *CriticalSection) Do(ctx context.Context, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file != nil {
		locked, err := c.file.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to lock ledger %s: %w", c.key, err)
		}
		if !locked {
			return fmt.Errorf("failed to lock ledger %s: %w", c.key, ctx.Err())
		}
		defer c.file.Unlock()
	}

	return fn()
}
