package binding

import (
	"context"
	"time"

	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/track"
)

// State is the adoption state of a Deferred binding.
type State int

const (
	// StateIdle means the last seen snapshot is the one to render.
	StateIdle State = iota
	// StatePending means a newer snapshot differs on a read path and is
	// waiting for the delay to elapse.
	StatePending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Result is what a Deferred consumer renders from. When Pending is set,
// View still shows the last adopted snapshot and Ready closes once the
// newer one is adopted.
type Result struct {
	View    *track.View
	Pending bool
	Ready   <-chan struct{}
}

// DeferredOption configures a Deferred binding.
type DeferredOption func(*Deferred)

// WithDelay sets how long a changed snapshot stays pending. Default 0.
func WithDelay(d time.Duration) DeferredOption {
	return func(b *Deferred) {
		if d > 0 {
			b.delay = d
		}
	}
}

// WithClock replaces the clock used to schedule adoption.
func WithClock(c Clock) DeferredOption {
	return func(b *Deferred) {
		if c != nil {
			b.clock = c
		}
	}
}

// closedChan is returned as Ready while the binding is idle.
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Deferred adopts changed snapshots only after a delay. Notifications
// arriving while a change is pending are coalesced into the adoption.
type Deferred struct {
	base
	render func()
	delay  time.Duration
	clock  Clock

	// guarded by base.mu
	state State
	timer Timer
	ready chan struct{}
}

// NewDeferred binds to s. render is called when a change becomes pending
// and again when it is adopted; the second call runs on the clock's
// goroutine.
func NewDeferred(s *store.Store, render func(), opts ...DeferredOption) *Deferred {
	b := &Deferred{
		render: render,
		clock:  RealClock(),
		ready:  closedChan,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.attach(s, b)
	return b
}

// Delay returns the configured delay.
func (b *Deferred) Delay() time.Duration { return b.delay }

// State returns the current adoption state.
func (b *Deferred) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Read returns the view of the last adopted snapshot with the pending
// state. Reads through the view are recorded while a session is open.
func (b *Deferred) Read() Result {
	b.mu.Lock()
	root, pending, ready := b.seen.Root, b.state == StatePending, b.ready
	b.mu.Unlock()
	return Result{View: b.tracker.View(root), Pending: pending, Ready: ready}
}

// Begin opens a read session over the last adopted snapshot.
func (b *Deferred) Begin() (Result, UpdateFunc) {
	b.mu.Lock()
	root := b.seen.Root
	b.mu.Unlock()
	b.begin(root)
	return b.Read(), b.Update
}

// Render runs fn as one read session and commits it, even if fn panics.
func (b *Deferred) Render(fn func(r Result, update UpdateFunc)) {
	r, update := b.Begin()
	defer b.Commit()
	fn(r, update)
}

// Wait blocks until the binding is idle, ctx is done or the binding is
// closed.
func (b *Deferred) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		closed, pending, ready := b.closed, b.state == StatePending, b.ready
		b.mu.Unlock()
		if closed {
			return ErrClosed
		}
		if !pending {
			return nil
		}
		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Notify implements store.Listener.
func (b *Deferred) Notify() {
	next := b.store.Current()

	b.mu.Lock()
	if b.closed || b.state == StatePending || next.Version <= b.seen.Version {
		b.mu.Unlock()
		return
	}
	if !track.PathsDiffer(b.seen.Root, next.Root, b.paths) {
		b.seen = next
		b.mu.Unlock()
		return
	}
	b.state = StatePending
	b.ready = make(chan struct{})
	b.timer = b.clock.AfterFunc(b.delay, b.adopt)
	scheduled := b.timer != nil
	b.mu.Unlock()

	b.store.Logger().Debug("binding pending",
		"binding", b.id,
		"protocol", "deferred",
		"version", next.Version,
		"delay", b.delay,
		"scheduled", scheduled,
	)
	if b.render != nil {
		b.render()
	}
}

// adopt runs when the delay elapsed. The store's value at that moment is
// adopted, covering every coalesced notification.
func (b *Deferred) adopt() {
	next := b.store.Current()

	b.mu.Lock()
	if b.closed || b.state != StatePending {
		b.mu.Unlock()
		return
	}
	b.seen = next
	b.state = StateIdle
	b.timer = nil
	close(b.ready)
	b.mu.Unlock()

	b.store.Logger().Debug("binding ready",
		"binding", b.id,
		"protocol", "deferred",
		"version", next.Version,
	)
	if b.render != nil {
		b.render()
	}
}

// Close removes the listener, stops a pending timer and releases waiters.
func (b *Deferred) Close() {
	if !b.close(b) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.state == StatePending {
		b.state = StateIdle
		close(b.ready)
	}
}
