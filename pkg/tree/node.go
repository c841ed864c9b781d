package tree

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrUnsupported is returned when a Go value has no tree representation.
var ErrUnsupported = errors.New("tree: unsupported value")

// ErrNotContainer is returned when a child operation targets a scalar node.
var ErrNotContainer = errors.New("tree: node is not an object or array")

// ErrIndexOutOfRange is returned when an array index is outside the array.
var ErrIndexOutOfRange = errors.New("tree: index out of range")

// ErrInvalidIndex is returned when an array child key is not a decimal index.
var ErrInvalidIndex = errors.New("tree: invalid array index")

// Kind identifies the type of a Node.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Node is one immutable node of a state tree.
//
// Scalars hold bool, int64, float64 or string. Objects keep their keys in
// insertion order. The zero Node is null.
type Node struct {
	kind   Kind
	scalar any

	// keys is the object key order; fields holds the children by key.
	keys   []string
	fields map[string]*Node

	items []*Node
}

var null = &Node{kind: KindNull}

// Null returns the null node.
func Null() *Node { return null }

// Bool returns a bool node.
func Bool(b bool) *Node { return &Node{kind: KindBool, scalar: b} }

// Int returns an integer number node.
func Int(i int64) *Node { return &Node{kind: KindNumber, scalar: i} }

// Float returns a floating point number node.
func Float(f float64) *Node { return &Node{kind: KindNumber, scalar: f} }

// String returns a string node.
func String(s string) *Node { return &Node{kind: KindString, scalar: s} }

// Field is a key/value pair used to build objects.
type Field struct {
	Key   string
	Value *Node
}

// Object builds an object node from fields, in order. A repeated key keeps
// its first position and its last value.
func Object(fields ...Field) *Node {
	n := &Node{
		kind:   KindObject,
		keys:   make([]string, 0, len(fields)),
		fields: make(map[string]*Node, len(fields)),
	}
	for _, f := range fields {
		v := f.Value
		if v == nil {
			v = null
		}
		if _, ok := n.fields[f.Key]; !ok {
			n.keys = append(n.keys, f.Key)
		}
		n.fields[f.Key] = v
	}
	return n
}

// Array builds an array node.
func Array(items ...*Node) *Node {
	n := &Node{kind: KindArray, items: make([]*Node, len(items))}
	for i, it := range items {
		if it == nil {
			it = null
		}
		n.items[i] = it
	}
	return n
}

// Kind returns the node kind. A nil node is null.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

// IsContainer reports whether the node is an object or an array.
func (n *Node) IsContainer() bool {
	k := n.Kind()
	return k == KindObject || k == KindArray
}

// Len returns the number of keys of an object or items of an array.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindObject:
		return len(n.keys)
	case KindArray:
		return len(n.items)
	default:
		return 0
	}
}

// Keys returns the child keys in order: object keys, or decimal indices for
// arrays. The returned slice is a copy.
func (n *Node) Keys() []string {
	switch n.Kind() {
	case KindObject:
		return append([]string(nil), n.keys...)
	case KindArray:
		keys := make([]string, len(n.items))
		for i := range n.items {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	default:
		return nil
	}
}

// Child returns the child stored under key. For arrays the key is a decimal
// index.
func (n *Node) Child(key string) (*Node, bool) {
	switch n.Kind() {
	case KindObject:
		c, ok := n.fields[key]
		return c, ok
	case KindArray:
		i, err := parseIndex(key)
		if err != nil || i >= len(n.items) {
			return nil, false
		}
		return n.items[i], true
	default:
		return nil, false
	}
}

// Index returns the i-th item of an array.
func (n *Node) Index(i int) (*Node, bool) {
	if n.Kind() != KindArray || i < 0 || i >= len(n.items) {
		return nil, false
	}
	return n.items[i], true
}

// At walks path from n.
func (n *Node) At(path Path) (*Node, bool) {
	cur := n
	for _, key := range path {
		next, ok := cur.Child(key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Value returns the scalar value: nil, bool, int64, float64 or string.
// Containers return nil; use ToGo for a full conversion.
func (n *Node) Value() any {
	if n == nil {
		return nil
	}
	return n.scalar
}

// AsString returns the string value of a string node.
func (n *Node) AsString() (string, bool) {
	s, ok := n.Value().(string)
	return s, ok
}

// AsBool returns the value of a bool node.
func (n *Node) AsBool() (bool, bool) {
	b, ok := n.Value().(bool)
	return b, ok
}

// AsInt returns the value of a number node as int64. Floats convert only
// when they hold an integral value within the int64 range.
func (n *Node) AsInt() (int64, bool) {
	switch v := n.Value().(type) {
	case int64:
		return v, true
	case float64:
		return FloatToInt(v)
	}
	return 0, false
}

// FloatToInt converts f when it is integral and fits in an int64.
func FloatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// AsFloat returns the value of a number node as float64.
func (n *Node) AsFloat() (float64, bool) {
	switch v := n.Value().(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// ToGo converts the subtree to plain Go values: map[string]any, []any and
// scalars.
func (n *Node) ToGo() any {
	switch n.Kind() {
	case KindObject:
		m := make(map[string]any, len(n.keys))
		for _, k := range n.keys {
			m[k] = n.fields[k].ToGo()
		}
		return m
	case KindArray:
		s := make([]any, len(n.items))
		for i, it := range n.items {
			s[i] = it.ToGo()
		}
		return s
	default:
		return n.Value()
	}
}

// Clone returns a new node that shares every child with n. It is used when
// a new version must have a distinct root identity without any change.
func (n *Node) Clone() *Node {
	if n == nil {
		return &Node{kind: KindNull}
	}
	c := &Node{kind: n.kind, scalar: n.scalar}
	switch n.kind {
	case KindObject:
		c.keys = append([]string(nil), n.keys...)
		c.fields = make(map[string]*Node, len(n.fields))
		for k, v := range n.fields {
			c.fields[k] = v
		}
	case KindArray:
		c.items = append([]*Node(nil), n.items...)
	}
	return c
}

// WithChild returns a copy of n with child stored under key. Objects gain
// the key if missing. Arrays accept an existing index, or len(n) to append.
func (n *Node) WithChild(key string, child *Node) (*Node, error) {
	if child == nil {
		child = null
	}
	switch n.Kind() {
	case KindObject:
		c := n.Clone()
		if _, ok := c.fields[key]; !ok {
			c.keys = append(c.keys, key)
		}
		c.fields[key] = child
		return c, nil
	case KindArray:
		i, err := parseIndex(key)
		if err != nil {
			return nil, err
		}
		if i > len(n.items) {
			return nil, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(n.items))
		}
		c := n.Clone()
		if i == len(c.items) {
			c.items = append(c.items, child)
		} else {
			c.items[i] = child
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotContainer, n.Kind())
	}
}

// WithoutChild returns a copy of n without key. Removing an array item
// shifts the following items down. Removing a missing object key returns n.
func (n *Node) WithoutChild(key string) (*Node, error) {
	switch n.Kind() {
	case KindObject:
		if _, ok := n.fields[key]; !ok {
			return n, nil
		}
		c := n.Clone()
		delete(c.fields, key)
		for i, k := range c.keys {
			if k == key {
				c.keys = append(c.keys[:i], c.keys[i+1:]...)
				break
			}
		}
		return c, nil
	case KindArray:
		i, err := parseIndex(key)
		if err != nil {
			return nil, err
		}
		if i >= len(n.items) {
			return nil, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(n.items))
		}
		c := n.Clone()
		c.items = append(c.items[:i], c.items[i+1:]...)
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotContainer, n.Kind())
	}
}

// Appended returns a copy of the array n with child added at the end.
func (n *Node) Appended(child *Node) (*Node, error) {
	return n.Inserted(n.Len(), child)
}

// Inserted returns a copy of the array n with child inserted before index i.
// An index equal to the length appends.
func (n *Node) Inserted(i int, child *Node) (*Node, error) {
	if n.Kind() != KindArray {
		return nil, fmt.Errorf("%w: %s", ErrNotContainer, n.Kind())
	}
	if i < 0 || i > len(n.items) {
		return nil, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(n.items))
	}
	if child == nil {
		child = null
	}
	items := make([]*Node, 0, len(n.items)+1)
	items = append(items, n.items[:i]...)
	items = append(items, child)
	items = append(items, n.items[i:]...)
	return &Node{kind: KindArray, items: items}, nil
}

// Equal reports whether a and b hold the same value. Identical pointers are
// equal without descending. Numbers compare numerically, so Int(2) equals
// Float(2). Object key order is not significant.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil {
		a = null
	}
	if b == nil {
		b = null
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindNumber:
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		ai, aInt := a.scalar.(int64)
		bi, bInt := b.scalar.(int64)
		if aInt && bInt {
			return ai == bi
		}
		return af == bf
	case KindBool, KindString:
		return a.scalar == b.scalar
	case KindObject:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for k, av := range a.fields {
			bv, ok := b.fields[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// SameKeys reports whether two nodes have the same kind and the same child
// keys in the same order. It compares shape only.
func SameKeys(a, b *Node) bool {
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindObject:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for i := range a.keys {
			if a.keys[i] != b.keys[i] {
				return false
			}
		}
		return true
	case KindArray:
		return len(a.items) == len(b.items)
	default:
		return true
	}
}

func parseIndex(key string) (int, error) {
	if key == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidIndex)
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidIndex, key)
		}
	}
	if len(key) > 1 && key[0] == '0' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIndex, key)
	}
	i, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIndex, key)
	}
	return i, nil
}
