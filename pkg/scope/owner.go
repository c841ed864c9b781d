package scope

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var idCounter atomic.Uint64

func nextID() uint64 { return idCounter.Add(1) }

// Owner represents a component scope. When an Owner is disposed, its child
// owners are disposed first, then its cleanups run.
type Owner struct {
	id uint64

	// parent is nil for the root Owner.
	parent *Owner

	children   []*Owner
	childrenMu sync.Mutex

	// cleanups are registered via OnCleanup.
	cleanups   []func()
	cleanupsMu sync.Mutex

	values   map[any]any
	valuesMu sync.RWMutex

	// invalidate requests a re-render from the host.
	invalidate func()

	disposed atomic.Bool

	// Render state. A render is driven by one goroutine at a time.
	rendering   bool
	renderCount int
	hookSlots   []hookSlot
	hookSlotIdx int
	commits     []func()
}

type hookSlot struct {
	kind  HookType
	value any
}

// Option configures an Owner.
type Option func(*Owner)

// WithInvalidate sets the function Invalidate calls.
func WithInvalidate(fn func()) Option {
	return func(o *Owner) { o.invalidate = fn }
}

// NewOwner creates an Owner under parent. If parent is nil, it creates a
// root Owner.
func NewOwner(parent *Owner, opts ...Option) *Owner {
	o := &Owner{
		id:     nextID(),
		parent: parent,
	}
	for _, opt := range opts {
		opt(o)
	}
	if parent != nil {
		parent.addChild(o)
	}
	return o
}

// ID returns the unique identifier for this Owner.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent Owner, or nil if this is a root Owner.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// Children returns a copy of the child owners.
func (o *Owner) Children() []*Owner {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	return append([]*Owner(nil), o.children...)
}

// IsDisposed returns true if this Owner has been disposed.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

func (o *Owner) addChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	o.children = append(o.children, child)
}

func (o *Owner) removeChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// OnCleanup registers fn to run when this Owner is disposed. On a disposed
// Owner fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}
	o.cleanupsMu.Lock()
	defer o.cleanupsMu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

// SetValue sets a value visible to this Owner and its descendants.
func (o *Owner) SetValue(key, value any) {
	o.valuesMu.Lock()
	defer o.valuesMu.Unlock()
	if o.values == nil {
		o.values = make(map[any]any)
	}
	o.values[key] = value
}

// LookupValue retrieves a value from this Owner or the nearest ancestor
// that set it.
func (o *Owner) LookupValue(key any) (any, bool) {
	for cur := o; cur != nil; cur = cur.parent {
		cur.valuesMu.RLock()
		val, ok := cur.values[key]
		cur.valuesMu.RUnlock()
		if ok {
			return val, true
		}
	}
	return nil, false
}

// GetValue is LookupValue without the presence flag.
func (o *Owner) GetValue(key any) any {
	v, _ := o.LookupValue(key)
	return v
}

// Invalidate asks the host to re-render this Owner, through the nearest
// Owner configured WithInvalidate. It does nothing once disposed.
func (o *Owner) Invalidate() {
	if o.disposed.Load() {
		return
	}
	for cur := o; cur != nil; cur = cur.parent {
		if cur.invalidate != nil {
			cur.invalidate()
			return
		}
	}
}

// Dispose disposes this Owner and all its children, then runs its
// cleanups. Children are disposed in reverse order (last created first).
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}

	o.childrenMu.Lock()
	children := o.children
	o.children = nil
	o.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	o.cleanupsMu.Lock()
	cleanups := o.cleanups
	o.cleanups = nil
	o.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	o.commits = nil
	o.hookSlots = nil
}

// StartRender begins a render. It resets the hook slot index so hooks
// resolve to the same slots as in the previous render.
func (o *Owner) StartRender() {
	o.rendering = true
	o.hookSlotIdx = 0
	o.commits = o.commits[:0]
}

// EndRender ends a render and runs the callbacks registered with OnCommit,
// in registration order. A render that used fewer hooks than the first one
// panics.
func (o *Owner) EndRender() {
	commits := o.commits
	o.commits = nil
	o.rendering = false

	for _, fn := range commits {
		fn()
	}

	if o.renderCount > 0 && o.hookSlotIdx < len(o.hookSlots) {
		panic(fmt.Sprintf("scope: hook order changed: expected %d hooks, got %d",
			len(o.hookSlots), o.hookSlotIdx))
	}
	o.renderCount++
}

// Rendering reports whether the Owner is between StartRender and EndRender.
func (o *Owner) Rendering() bool {
	return o.rendering
}

// RenderCount returns the number of completed renders.
func (o *Owner) RenderCount() int {
	return o.renderCount
}

// OnCommit registers fn to run at the next EndRender. Outside a render fn
// runs immediately.
func (o *Owner) OnCommit(fn func()) {
	if !o.rendering {
		fn()
		return
	}
	o.commits = append(o.commits, fn)
}
