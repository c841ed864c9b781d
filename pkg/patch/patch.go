package patch

import (
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/vango-dev/vstore/pkg/draft"
	"github.com/vango-dev/vstore/pkg/tree"
)

var (
	// ErrInvalidPointer is returned for malformed JSON pointers.
	ErrInvalidPointer = errors.New("patch: invalid JSON pointer")

	// ErrUnknownOp is returned for operations outside RFC 6902.
	ErrUnknownOp = errors.New("patch: unknown operation")

	// ErrMissingValue is returned when add, replace or test has no value.
	ErrMissingValue = errors.New("patch: operation has no value")

	// ErrTestFailed is returned when a test operation does not match.
	ErrTestFailed = errors.New("patch: test operation failed")
)

// Op is one decoded patch operation.
type Op struct {
	Kind  string
	Path  tree.Path
	From  tree.Path
	Value *tree.Node
}

// Patch is a decoded JSON Patch document.
type Patch []Op

// Decode parses an RFC 6902 document.
func Decode(doc []byte) (Patch, error) {
	ops, err := jsonpatch.DecodePatch(doc)
	if err != nil {
		return nil, fmt.Errorf("patch: decode: %w", err)
	}
	out := make(Patch, 0, len(ops))
	for i, op := range ops {
		o, err := decodeOp(op)
		if err != nil {
			return nil, fmt.Errorf("patch: op %d: %w", i, err)
		}
		out = append(out, o)
	}
	return out, nil
}

func decodeOp(op jsonpatch.Operation) (Op, error) {
	o := Op{Kind: op.Kind()}
	switch o.Kind {
	case "add", "remove", "replace", "move", "copy", "test":
	default:
		return o, fmt.Errorf("%w: %q", ErrUnknownOp, o.Kind)
	}

	ptr, err := op.Path()
	if err != nil {
		return o, err
	}
	if o.Path, err = ParsePointer(ptr); err != nil {
		return o, err
	}

	if o.Kind == "move" || o.Kind == "copy" {
		from, err := op.From()
		if err != nil {
			return o, err
		}
		if o.From, err = ParsePointer(from); err != nil {
			return o, err
		}
	}

	if o.Kind == "add" || o.Kind == "replace" || o.Kind == "test" {
		raw, ok := op["value"]
		if !ok {
			return o, ErrMissingValue
		}
		if raw == nil {
			o.Value = tree.Null()
		} else if o.Value, err = tree.FromJSON(*raw); err != nil {
			return o, err
		}
	}
	return o, nil
}

// Mutation returns a mutation applying every operation in order. If one
// fails the whole mutation fails and nothing is published.
func (p Patch) Mutation() draft.Mutation {
	return func(d *draft.Draft) error {
		for i, op := range p {
			if err := op.apply(d); err != nil {
				return fmt.Errorf("patch: op %d (%s %s): %w", i, op.Kind, FormatPointer(op.Path), err)
			}
		}
		return nil
	}
}

// Mutation decodes doc and returns its mutation.
func Mutation(doc []byte) (draft.Mutation, error) {
	p, err := Decode(doc)
	if err != nil {
		return nil, err
	}
	return p.Mutation(), nil
}

func (op Op) apply(d *draft.Draft) error {
	switch op.Kind {
	case "add":
		return add(d, op.Path, op.Value)
	case "remove":
		return remove(d, op.Path)
	case "replace":
		if _, ok := d.Get(op.Path); !ok {
			return draft.ErrPathNotFound
		}
		return d.Set(op.Path, op.Value)
	case "move":
		v, ok := d.Get(op.From)
		if !ok {
			return draft.ErrPathNotFound
		}
		if op.Path.Equal(op.From) {
			return nil
		}
		if err := remove(d, op.From); err != nil {
			return err
		}
		return add(d, op.Path, v)
	case "copy":
		v, ok := d.Get(op.From)
		if !ok {
			return draft.ErrPathNotFound
		}
		return add(d, op.Path, v)
	case "test":
		v, ok := d.Get(op.Path)
		if !ok || !tree.Equal(v, op.Value) {
			return ErrTestFailed
		}
		return nil
	default:
		return ErrUnknownOp
	}
}

// add sets an object member, or inserts into an array, "-" appending.
func add(d *draft.Draft, path tree.Path, v *tree.Node) error {
	if len(path) == 0 {
		return d.Set(path, v)
	}
	parent, ok := d.Get(path.Parent())
	if !ok {
		return draft.ErrPathNotFound
	}
	if parent.Kind() != tree.KindArray {
		return d.Set(path, v)
	}
	if path.Last() == "-" {
		return d.Append(path.Parent(), v)
	}
	return d.Insert(path, v)
}

// remove deletes a member that must exist.
func remove(d *draft.Draft, path tree.Path) error {
	if _, ok := d.Get(path); !ok {
		return draft.ErrPathNotFound
	}
	return d.Delete(path)
}
