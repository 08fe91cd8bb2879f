package events

import "sync"

// Publisher is the write side of a [Channel], handed to workers.
type Publisher interface {
	Publish(Event)
}

// Channel is an unbounded, ordered, multi-producer queue of events.
//
// The zero value is not usable; create one with [NewChannel].
type Channel struct {
	mu     sync.Mutex
	queue  []Event
	ready  chan struct{}
	closed bool
}

func NewChannel() *Channel {
	return &Channel{ready: make(chan struct{}, 1)}
}

// Publish appends e to the queue. It never blocks. Events published after [Channel.Close] are dropped.
func (c *Channel) Publish(e Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, e)
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Drain removes and returns every queued event in publish order.
func (c *Channel) Drain() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return nil
	}
	out := c.queue
	c.queue = nil
	return out
}

// TryNext removes and returns the oldest event, if any.
func (c *Channel) TryNext() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return nil, false
	}
	e := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return e, true
}

// Len returns the number of queued events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Ready is signalled at least once after one or more publishes.
// A receive does not guarantee the queue is still non-empty.
func (c *Channel) Ready() <-chan struct{} {
	return c.ready
}

// Close stops accepting events. Queued events remain drainable.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Recorder is a [Publisher] that keeps every event, for tests and dry runs.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kind of every published event in order.
func (r *Recorder) Kinds() []Kind {
	events := r.Events()
	kinds := make([]Kind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind()
	}
	return kinds
}
