package binding

import (
	"errors"
	"sync"

	"github.com/vango-dev/vstore/pkg/draft"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/track"
	"github.com/vango-dev/vstore/pkg/tree"
)

// ErrClosed is returned by UpdateFunc of a binding after Close.
var ErrClosed = errors.New("binding: closed")

// UpdateFunc applies a mutation through the binding's store.
type UpdateFunc func(m draft.Mutation) error

// Binding is the part of every protocol the scope layer needs.
type Binding interface {
	ID() uint64
	Close()
}

// base is the machinery shared by all protocols.
type base struct {
	id      uint64
	store   *store.Store
	tracker *track.Tracker

	mu     sync.Mutex
	seen   store.Snapshot
	paths  track.PathSet
	closed bool
}

// attach captures the current snapshot and registers self as the single
// listener of the binding.
func (b *base) attach(s *store.Store, self store.Listener) {
	b.id = store.NextID()
	b.store = s
	b.tracker = track.NewTracker()
	b.seen = s.Current()
	s.AddListener(self)
}

// ID returns the binding identifier, also used as its listener ID.
func (b *base) ID() uint64 { return b.id }

// Store returns the bound store.
func (b *base) Store() *store.Store { return b.store }

// Seen returns the last snapshot the binding adopted.
func (b *base) Seen() store.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seen
}

// Paths returns the paths committed by the last session.
func (b *base) Paths() track.PathSet {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paths
}

// Closed reports whether Close was called.
func (b *base) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Commit ends the open read session and keeps its paths for change
// detection. Without an open session the committed paths become empty.
func (b *base) Commit() {
	paths := b.tracker.End()
	b.mu.Lock()
	b.paths = paths
	b.mu.Unlock()
}

// Update applies m through the store.
func (b *base) Update(m draft.Mutation) error {
	if b.Closed() {
		return ErrClosed
	}
	return b.store.Update(m)
}

// begin opens a read session over root.
func (b *base) begin(root *tree.Node) *track.View {
	return b.tracker.Begin(root)
}

// close marks the binding closed and removes its listener. It reports
// whether this call did the work.
func (b *base) close(self store.Listener) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.closed = true
	b.mu.Unlock()

	b.store.RemoveListener(self)
	return true
}

// observe compares the store's current version with the last seen one.
// It adopts the current version when adopt is true and reports the
// previous snapshot, the current one and whether a read path changed.
// ok is false when the binding is closed or the version is not newer.
func (b *base) observe(adopt bool) (prev, next store.Snapshot, changed, ok bool) {
	next = b.store.Current()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || next.Version <= b.seen.Version {
		return b.seen, next, false, false
	}
	prev = b.seen
	changed = track.PathsDiffer(prev.Root, next.Root, b.paths)
	if adopt {
		b.seen = next
	}
	return prev, next, changed, true
}
