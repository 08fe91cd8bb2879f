package tasks

import (
	"context"
	"sync/atomic"
	"time"
)

// Clock abstracts time for the polling loops.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// sleep waits for d on clock, returning early when ctx is done.
func sleep(ctx context.Context, clock Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}

// PauseToken is the cooperative stop signal of one upload batch.
type PauseToken struct {
	paused atomic.Bool
}

func NewPauseToken() *PauseToken { return &PauseToken{} }

// Pause asks the batch to stop at its next checkpoint. Safe on a nil token.
func (p *PauseToken) Pause() {
	if p != nil {
		p.paused.Store(true)
	}
}

// Paused reports whether Pause was called. A nil token is never paused.
func (p *PauseToken) Paused() bool {
	return p != nil && p.paused.Load()
}
