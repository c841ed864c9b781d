package binding

import (
	"sync"

	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/track"
)

type subscription struct {
	id uint64
	cb func()
}

// Synchronized exposes the store through the pull-based external store
// contract. The host subscribes; on every publication its callback fires.
// Changed tells the callback whether a committed read path moved, and
// Snapshot always views the current value.
type Synchronized struct {
	base

	// view is the last view Snapshot returned; it belongs to seen.Root.
	view *track.View

	// server views the initial state; it never opens sessions.
	server *track.Tracker

	subsMu sync.Mutex
	subs   []subscription
}

// NewSynchronized binds to s.
func NewSynchronized(s *store.Store) *Synchronized {
	b := &Synchronized{server: track.NewTracker()}
	b.attach(s, b)
	return b
}

// Subscribe registers cb to run after every published version. The
// returned function removes cb; it is idempotent.
func (b *Synchronized) Subscribe(cb func()) (unsubscribe func()) {
	id := store.NextID()
	b.subsMu.Lock()
	b.subs = append(b.subs, subscription{id: id, cb: cb})
	b.subsMu.Unlock()

	return func() {
		b.subsMu.Lock()
		defer b.subsMu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the tracked view of the store's current value. Calls
// between publications return the same view.
func (b *Synchronized) Snapshot() *track.View {
	cur := b.store.Current()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.view != nil && cur.Version == b.seen.Version {
		return b.view
	}
	b.seen = cur
	b.view = b.tracker.View(cur.Root)
	return b.view
}

// Changed reports whether a path committed by the last session differs
// between the last snapshot and the store's current value.
func (b *Synchronized) Changed() bool {
	cur := b.store.Current()

	b.mu.Lock()
	defer b.mu.Unlock()
	if cur.Version == b.seen.Version {
		return false
	}
	return track.PathsDiffer(b.seen.Root, cur.Root, b.paths)
}

// ServerSnapshot returns a view of the initial state, for renders that
// happen before any subscription. Reads through it are not tracked.
func (b *Synchronized) ServerSnapshot() *track.View {
	return b.server.View(b.store.Initial())
}

// Begin opens a read session over the snapshot and returns its view,
// which is the same *View Snapshot returns.
func (b *Synchronized) Begin() (*track.View, UpdateFunc) {
	v := b.Snapshot()
	return b.begin(v.Root()), b.Update
}

// Render runs fn as one read session and commits it, even if fn panics.
func (b *Synchronized) Render(fn func(v *track.View, update UpdateFunc)) {
	v, update := b.Begin()
	defer b.Commit()
	fn(v, update)
}

// Notify implements store.Listener.
func (b *Synchronized) Notify() {
	if b.Closed() {
		return
	}

	b.subsMu.Lock()
	subs := append([]subscription(nil), b.subs...)
	b.subsMu.Unlock()

	b.store.Logger().Debug("binding notified",
		"binding", b.id,
		"protocol", "synchronized",
		"to", b.store.Current().Version,
		"subscribers", len(subs),
	)
	for _, s := range subs {
		s.cb()
	}
}

// Close removes the listener and every subscription.
func (b *Synchronized) Close() {
	if b.close(b) {
		b.subsMu.Lock()
		b.subs = nil
		b.subsMu.Unlock()
	}
}
