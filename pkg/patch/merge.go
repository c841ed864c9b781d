package patch

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/vango-dev/vstore/pkg/draft"
	"github.com/vango-dev/vstore/pkg/tree"
)

// MergeMutation returns a mutation applying the RFC 7386 merge patch doc
// at the root: object members merge recursively, null removes a member and
// anything else replaces the target.
func MergeMutation(doc []byte) (draft.Mutation, error) {
	if !json.Valid(doc) {
		return nil, fmt.Errorf("patch: merge document is not valid JSON")
	}
	p, err := tree.FromJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("patch: merge document: %w", err)
	}
	return MergeAt(tree.Path{}, p), nil
}

// MergeAt returns a mutation applying the merge patch p at path.
func MergeAt(path tree.Path, p *tree.Node) draft.Mutation {
	return func(d *draft.Draft) error {
		return merge(d, path, p)
	}
}

func merge(d *draft.Draft, at tree.Path, p *tree.Node) error {
	cur, ok := d.Get(at)
	if p.Kind() != tree.KindObject {
		return d.Set(at, p)
	}
	if !ok || cur.Kind() != tree.KindObject {
		if err := d.Set(at, tree.Object()); err != nil {
			return err
		}
	}
	for _, k := range p.Keys() {
		child, _ := p.Child(k)
		path := at.Child(k)
		if child.Kind() == tree.KindNull {
			if _, ok := d.Get(path); !ok {
				continue
			}
			if err := d.Delete(path); err != nil {
				return err
			}
			continue
		}
		if err := merge(d, path, child); err != nil {
			return err
		}
	}
	return nil
}

// Diff returns the merge patch that turns old into next.
func Diff(old, next *tree.Node) ([]byte, error) {
	a, err := json.Marshal(old)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(next)
	if err != nil {
		return nil, err
	}
	out, err := jsonpatch.CreateMergePatch(a, b)
	if err != nil {
		return nil, fmt.Errorf("patch: diff: %w", err)
	}
	return out, nil
}
