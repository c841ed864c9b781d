package draft

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/vango-dev/vstore/pkg/tree"
)

// Mutation edits a draft. It must be synchronous and must not touch state
// outside the draft. Returning an error discards every edit.
type Mutation func(d *Draft) error

// Result is the outcome of a successful Produce.
type Result struct {
	// Root is the new state value. It is always a different pointer from
	// the input, even when nothing was written.
	Root *tree.Node

	// Writes lists the written paths in order.
	Writes []tree.Path
}

// Produce runs m against a draft of current and returns the new version.
//
// On failure the returned error matches ErrMutationFailed and wraps the
// cause in a *MutationError; current is unaffected either way.
func Produce(current *tree.Node, m Mutation) (res Result, err error) {
	if current == nil {
		current = tree.Null()
	}
	if m == nil {
		return Result{}, &MutationError{Err: errors.New("nil mutation")}
	}

	d := &Draft{base: current, root: current}
	defer func() {
		d.done = true
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			res = Result{}
			err = &MutationError{Err: cause, Panicked: true}
		}
	}()

	if err := m(d); err != nil {
		return Result{}, &MutationError{Err: err}
	}

	root := d.root
	if root == current {
		root = current.Clone()
	}
	return Result{Root: root, Writes: d.writes}, nil
}

// Draft is the mutable view handed to a Mutation. Reads see earlier writes
// of the same mutation.
type Draft struct {
	base   *tree.Node
	root   *tree.Node
	writes []tree.Path
	done   bool
}

// Base returns the state the draft started from.
func (d *Draft) Base() *tree.Node { return d.base }

// Root returns the current draft root.
func (d *Draft) Root() *tree.Node { return d.root }

// Get returns the draft node at path.
func (d *Draft) Get(path tree.Path) (*tree.Node, bool) {
	return d.root.At(path)
}

// Writes returns the paths written so far.
func (d *Draft) Writes() []tree.Path {
	return append([]tree.Path(nil), d.writes...)
}

// Set stores v at path. v is converted with tree.From. The last key may be
// new for objects, or equal to the length of an array to append. Setting
// the root path replaces the whole value. Setting a value equal to the
// current scalar, or the same node, is not a write.
func (d *Draft) Set(path tree.Path, v any) error {
	if err := d.check("set", path); err != nil {
		return err
	}
	node, err := tree.From(v)
	if err != nil {
		return &PathError{Op: "set", Path: path, Err: err}
	}
	if cur, ok := d.root.At(path); ok && unchanged(cur, node) {
		return nil
	}
	if len(path) == 0 {
		d.root = node
		d.writes = append(d.writes, tree.Path{})
		return nil
	}
	last := path.Last()
	return d.rewrite("set", path, path.Parent(), func(parent *tree.Node) (*tree.Node, error) {
		return parent.WithChild(last, node)
	})
}

// Delete removes the key at path. Deleting a missing object key is a no-op;
// deleting an array item shifts the following items.
func (d *Draft) Delete(path tree.Path) error {
	if err := d.check("delete", path); err != nil {
		return err
	}
	if len(path) == 0 {
		return &PathError{Op: "delete", Path: path, Err: ErrEmptyPath}
	}
	if _, ok := d.root.At(path); !ok {
		if parent, ok := d.root.At(path.Parent()); ok && parent.Kind() == tree.KindObject {
			return nil
		}
	}
	last := path.Last()
	return d.rewrite("delete", path, path.Parent(), func(parent *tree.Node) (*tree.Node, error) {
		return parent.WithoutChild(last)
	})
}

// Append adds v at the end of the array at path.
func (d *Draft) Append(path tree.Path, v any) error {
	node, err := tree.From(v)
	if err != nil {
		return &PathError{Op: "append", Path: path, Err: err}
	}
	return d.rewrite("append", path, path, func(arr *tree.Node) (*tree.Node, error) {
		return arr.Appended(node)
	})
}

// Insert inserts v before the index named by the last key of path.
func (d *Draft) Insert(path tree.Path, v any) error {
	if len(path) == 0 {
		return &PathError{Op: "insert", Path: path, Err: ErrEmptyPath}
	}
	node, err := tree.From(v)
	if err != nil {
		return &PathError{Op: "insert", Path: path, Err: err}
	}
	idx, err := strconv.Atoi(path.Last())
	if err != nil || idx < 0 || strconv.Itoa(idx) != path.Last() {
		return &PathError{Op: "insert", Path: path, Err: ErrInvalidIndex}
	}
	return d.rewrite("insert", path, path.Parent(), func(arr *tree.Node) (*tree.Node, error) {
		return arr.Inserted(idx, node)
	})
}

// Increment adds delta to the number at path. Integers stay integers
// unless the sum leaves the int64 range, which yields a float.
func (d *Draft) Increment(path tree.Path, delta float64) error {
	if err := d.check("increment", path); err != nil {
		return err
	}
	cur, ok := d.root.At(path)
	if !ok {
		return &PathError{Op: "increment", Path: path, Err: ErrPathNotFound}
	}
	if cur.Kind() != tree.KindNumber {
		return &PathError{Op: "increment", Path: path, Err: ErrNotNumber}
	}
	if i, isInt := cur.Value().(int64); isInt {
		if by, ok := tree.FloatToInt(delta); ok {
			if sum, ok := addInt(i, by); ok {
				return d.Set(path, tree.Int(sum))
			}
		}
	}
	f, _ := cur.AsFloat()
	return d.Set(path, tree.Float(f+delta))
}

// addInt reports false when a+b overflows.
func addInt(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// Merge sets every key of fields on the object at path, in sorted key
// order. Keys not in fields are kept.
func (d *Draft) Merge(path tree.Path, fields map[string]any) error {
	obj, err := tree.From(fields)
	if err != nil {
		return &PathError{Op: "merge", Path: path, Err: err}
	}
	for _, k := range obj.Keys() {
		child, _ := obj.Child(k)
		if err := d.Set(path.Child(k), child); err != nil {
			return err
		}
	}
	return nil
}

func (d *Draft) check(op string, path tree.Path) error {
	if d.done {
		return &PathError{Op: op, Path: path, Err: ErrDraftFinalized}
	}
	return nil
}

// rewrite applies edit to the node at target and rebuilds its ancestors.
// written is the path recorded in the write log.
func (d *Draft) rewrite(op string, written, target tree.Path, edit func(*tree.Node) (*tree.Node, error)) error {
	if err := d.check(op, written); err != nil {
		return err
	}
	next, err := rewriteAt(d.root, target, 0, edit)
	if err != nil {
		var pe *PathError
		if errors.As(err, &pe) {
			pe.Op = op
			return pe
		}
		return &PathError{Op: op, Path: written, Err: err}
	}
	d.root = next
	d.writes = append(d.writes, written)
	return nil
}

func rewriteAt(n *tree.Node, path tree.Path, i int, edit func(*tree.Node) (*tree.Node, error)) (*tree.Node, error) {
	if i == len(path) {
		return edit(n)
	}
	if !n.IsContainer() {
		return nil, &PathError{Path: path[:i], Err: fmt.Errorf("%w: %s", ErrNotContainer, n.Kind())}
	}
	child, ok := n.Child(path[i])
	if !ok {
		return nil, &PathError{Path: path[:i+1], Err: ErrPathNotFound}
	}
	next, err := rewriteAt(child, path, i+1, edit)
	if err != nil {
		return nil, err
	}
	if next == child {
		return n, nil
	}
	return n.WithChild(path[i], next)
}

func unchanged(cur, next *tree.Node) bool {
	if cur == next {
		return true
	}
	return !cur.IsContainer() && !next.IsContainer() && cur.Kind() == next.Kind() && tree.Equal(cur, next)
}
