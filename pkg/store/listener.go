package store

import "sync/atomic"

// Listener is notified after every published update.
type Listener interface {
	// Notify is called once per published version, after publication and
	// before Update returns.
	Notify()

	// ID identifies the listener. The store keeps at most one listener per
	// ID.
	ID() uint64
}

var idCounter atomic.Uint64

// NextID returns a process-unique identifier for stores, listeners and
// bindings.
func NextID() uint64 {
	return idCounter.Add(1)
}

type funcListener struct {
	id uint64
	fn func()
}

func (l *funcListener) Notify()    { l.fn() }
func (l *funcListener) ID() uint64 { return l.id }

// NewListener wraps fn in a Listener with a fresh ID.
func NewListener(fn func()) Listener {
	return &funcListener{id: NextID(), fn: fn}
}
