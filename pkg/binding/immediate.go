package binding

import (
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/track"
)

// Immediate re-renders its consumer synchronously when a read path changes.
type Immediate struct {
	base
	render func()
}

// NewImmediate binds to s. render is called from the store's fan-out when
// the last committed paths changed; it must not call Update synchronously.
func NewImmediate(s *store.Store, render func()) *Immediate {
	b := &Immediate{render: render}
	b.attach(s, b)
	return b
}

// Begin opens a read session over the last seen snapshot. Call Commit when
// the render is done.
func (b *Immediate) Begin() (*track.View, UpdateFunc) {
	return b.begin(b.Seen().Root), b.Update
}

// Render runs fn as one read session and commits it, even if fn panics.
func (b *Immediate) Render(fn func(v *track.View, update UpdateFunc)) {
	v, update := b.Begin()
	defer b.Commit()
	fn(v, update)
}

// Notify implements store.Listener.
func (b *Immediate) Notify() {
	prev, next, changed, ok := b.observe(true)
	if !ok || !changed {
		return
	}
	b.store.Logger().Debug("binding changed",
		"binding", b.id,
		"protocol", "immediate",
		"from", prev.Version,
		"to", next.Version,
	)
	if b.render != nil {
		b.render()
	}
}

// Close removes the listener. It is safe to call more than once.
func (b *Immediate) Close() {
	b.close(b)
}
