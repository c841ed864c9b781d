package track

import (
	"strconv"
	"sync"

	"github.com/vango-dev/vstore/pkg/tree"
)

// Tracker owns the read sessions and the view cache of one consumer.
// It is safe for concurrent use, though a session is meant to be driven by
// one render at a time.
type Tracker struct {
	mu sync.Mutex

	// root is the snapshot the cached views belong to.
	root  *tree.Node
	views map[string]*View

	// log is the open session, nil outside Begin/End.
	log *PathSet
}

// NewTracker creates a tracker with no open session.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin opens a read session over root and returns its root view. An open
// session is discarded. Views are reused while the root stays the same.
func (t *Tracker) Begin(root *tree.Node) *View {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = newPathSet()
	return t.viewLocked(root, tree.Path{})
}

// End closes the session and returns the recorded paths. Without an open
// session it returns an empty set.
func (t *Tracker) End() PathSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.log == nil {
		return PathSet{}
	}
	paths := t.log.seal()
	t.log = nil
	return paths
}

// Active reports whether a session is open.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.log != nil
}

// View returns the cached root view of root without opening a session.
// Reads through it are recorded only while a session is open.
func (t *Tracker) View(root *tree.Node) *View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewLocked(root, tree.Path{})
}

func (t *Tracker) viewLocked(root *tree.Node, path tree.Path) *View {
	if root != t.root || t.views == nil {
		t.root = root
		t.views = make(map[string]*View)
	}
	key := path.String()
	if v, ok := t.views[key]; ok {
		return v
	}
	node, ok := root.At(path)
	v := &View{t: t, root: root, node: node, path: path, exists: ok}
	t.views[key] = v
	return v
}

// child returns the view for key below parent, recording the visit.
func (t *Tracker) child(parent *View, key string) *View {
	path := parent.path.Child(key)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.log != nil {
		t.log.add(path, AccessVisit)
	}
	if parent.root == t.root && t.views != nil {
		return t.viewLocked(parent.root, path)
	}
	// A view from an older snapshot resolves against its own root.
	node, ok := parent.root.At(path)
	return &View{t: t, root: parent.root, node: node, path: path, exists: ok}
}

func (t *Tracker) record(path tree.Path, access Access) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.log != nil {
		t.log.add(path, access)
	}
}

// View is a read-through view of one node of a snapshot.
type View struct {
	t      *Tracker
	root   *tree.Node
	node   *tree.Node
	path   tree.Path
	exists bool
}

// Get returns the view of the child under key. Missing children yield a
// view whose Exists is false.
func (v *View) Get(key string) *View {
	return v.t.child(v, key)
}

// Index returns the view of the i-th array item.
func (v *View) Index(i int) *View {
	return v.t.child(v, strconv.Itoa(i))
}

// At navigates a relative path.
func (v *View) At(path tree.Path) *View {
	cur := v
	for _, key := range path {
		cur = cur.Get(key)
	}
	return cur
}

// Path returns the absolute path of the view.
func (v *View) Path() tree.Path {
	return append(tree.Path(nil), v.path...)
}

// Exists reports whether the node is present in the snapshot.
func (v *View) Exists() bool {
	return v.exists
}

// Kind records a shape read and returns the node kind.
func (v *View) Kind() tree.Kind {
	v.t.record(v.path, AccessShape)
	return v.node.Kind()
}

// Len records a shape read and returns the number of children.
func (v *View) Len() int {
	v.t.record(v.path, AccessShape)
	return v.node.Len()
}

// Keys records a shape read and returns the child keys.
func (v *View) Keys() []string {
	v.t.record(v.path, AccessShape)
	return v.node.Keys()
}

// Each calls fn for every child in order until fn returns false. It
// records a shape read plus a visit of every child passed to fn.
func (v *View) Each(fn func(key string, child *View) bool) {
	for _, key := range v.Keys() {
		if !fn(key, v.Get(key)) {
			return
		}
	}
}

// Value records a full read and returns the subtree as plain Go values.
func (v *View) Value() any {
	v.t.record(v.path, AccessValue)
	return v.node.ToGo()
}

// Node records a full read and returns the underlying node.
func (v *View) Node() *tree.Node {
	v.t.record(v.path, AccessValue)
	return v.node
}

// AsString records a full read and returns the string value, or "".
func (v *View) AsString() string {
	v.t.record(v.path, AccessValue)
	s, _ := v.node.AsString()
	return s
}

// AsInt records a full read and returns the integer value, or 0.
func (v *View) AsInt() int64 {
	v.t.record(v.path, AccessValue)
	i, _ := v.node.AsInt()
	return i
}

// AsFloat records a full read and returns the number value, or 0.
func (v *View) AsFloat() float64 {
	v.t.record(v.path, AccessValue)
	f, _ := v.node.AsFloat()
	return f
}

// AsBool records a full read and returns the bool value, or false.
func (v *View) AsBool() bool {
	v.t.record(v.path, AccessValue)
	b, _ := v.node.AsBool()
	return b
}

// Peek returns the underlying node without recording anything.
func (v *View) Peek() *tree.Node {
	return v.node
}

// Root returns the snapshot the view belongs to, without recording.
func (v *View) Root() *tree.Node {
	return v.root
}
