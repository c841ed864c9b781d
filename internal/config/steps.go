package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vango-dev/vstore/pkg/draft"
	"github.com/vango-dev/vstore/pkg/patch"
	"github.com/vango-dev/vstore/pkg/tree"
)

// Step kinds.
const (
	StepSet       = "set"
	StepDelete    = "delete"
	StepAppend    = "append"
	StepIncrement = "increment"
	StepMerge     = "merge"
	StepPatch     = "patch"
	StepWait      = "wait"
)

// Step is one scenario step. Exactly one field is set.
type Step struct {
	Set       *ValueOp     `yaml:"set,omitempty"`
	Delete    string       `yaml:"delete,omitempty"`
	Append    *ValueOp     `yaml:"append,omitempty"`
	Increment *IncrementOp `yaml:"increment,omitempty"`
	Merge     *ValueOp     `yaml:"merge,omitempty"`
	Patch     any          `yaml:"patch,omitempty"`
	Wait      string       `yaml:"wait,omitempty"`

	kind     string
	mutation draft.Mutation
	wait     time.Duration
	summary  string
}

// ValueOp writes Value at Path.
type ValueOp struct {
	Path  string `yaml:"path"`
	Value any    `yaml:"value"`
}

// IncrementOp adds By to the number at Path. By defaults to 1.
type IncrementOp struct {
	Path string   `yaml:"path"`
	By   *float64 `yaml:"by,omitempty"`
}

type stepError struct {
	code  string
	field string
	msg   string
}

// Kind returns the step kind. Valid after Validate.
func (s Step) Kind() string { return s.kind }

// Mutation returns the step's mutation, or nil for a wait step.
func (s Step) Mutation() draft.Mutation { return s.mutation }

// WaitDuration returns how long a wait step advances the clock.
func (s Step) WaitDuration() time.Duration { return s.wait }

// String describes the step in one line.
func (s Step) String() string { return s.summary }

func (s *Step) compile() *stepError {
	var kinds []string
	if s.Set != nil {
		kinds = append(kinds, StepSet)
	}
	if s.Delete != "" {
		kinds = append(kinds, StepDelete)
	}
	if s.Append != nil {
		kinds = append(kinds, StepAppend)
	}
	if s.Increment != nil {
		kinds = append(kinds, StepIncrement)
	}
	if s.Merge != nil {
		kinds = append(kinds, StepMerge)
	}
	if s.Patch != nil {
		kinds = append(kinds, StepPatch)
	}
	if s.Wait != "" {
		kinds = append(kinds, StepWait)
	}
	switch len(kinds) {
	case 0:
		return &stepError{"E123", "", "step has no operation"}
	case 1:
	default:
		return &stepError{"E123", "", "step has more than one operation: " + strings.Join(kinds, ", ")}
	}
	s.kind = kinds[0]

	switch s.kind {
	case StepSet, StepAppend, StepMerge:
		op := s.valueOp()
		path, err := tree.ParsePath(op.Path)
		if err != nil {
			return &stepError{"E122", "." + s.kind + ".path", err.Error()}
		}
		v, err := tree.From(op.Value)
		if err != nil {
			return &stepError{"E123", "." + s.kind + ".value", err.Error()}
		}
		s.summary = fmt.Sprintf("%s %s = %s", s.kind, path, compact(v))
		switch s.kind {
		case StepSet:
			s.mutation = func(d *draft.Draft) error { return d.Set(path, v) }
		case StepAppend:
			s.mutation = func(d *draft.Draft) error { return d.Append(path, v) }
		case StepMerge:
			if v.Kind() != tree.KindObject {
				return &stepError{"E123", ".merge.value", "merge value must be a mapping"}
			}
			s.mutation = patch.MergeAt(path, v)
		}

	case StepDelete:
		path, err := tree.ParsePath(s.Delete)
		if err != nil {
			return &stepError{"E122", ".delete", err.Error()}
		}
		s.summary = fmt.Sprintf("delete %s", path)
		s.mutation = func(d *draft.Draft) error { return d.Delete(path) }

	case StepIncrement:
		path, err := tree.ParsePath(s.Increment.Path)
		if err != nil {
			return &stepError{"E122", ".increment.path", err.Error()}
		}
		by := 1.0
		if s.Increment.By != nil {
			by = *s.Increment.By
		}
		s.summary = fmt.Sprintf("increment %s by %g", path, by)
		s.mutation = func(d *draft.Draft) error { return d.Increment(path, by) }

	case StepPatch:
		doc, err := patchDocument(s.Patch)
		if err != nil {
			return &stepError{"E141", ".patch", err.Error()}
		}
		p, err := patch.Decode(doc)
		if err != nil {
			return &stepError{"E141", ".patch", err.Error()}
		}
		s.summary = fmt.Sprintf("patch (%d ops)", len(p))
		s.mutation = p.Mutation()

	case StepWait:
		d, err := parseDuration(s.Wait)
		if err != nil {
			return &stepError{"E124", ".wait", err.Error()}
		}
		s.wait = d
		s.summary = "wait " + d.String()
	}
	return nil
}

func (s *Step) valueOp() *ValueOp {
	switch {
	case s.Set != nil:
		return s.Set
	case s.Append != nil:
		return s.Append
	default:
		return s.Merge
	}
}

// patchDocument accepts a JSON Patch either as a YAML sequence of ops or
// as a JSON string.
func patchDocument(v any) ([]byte, error) {
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	if _, ok := v.([]any); !ok {
		return nil, fmt.Errorf("patch must be a sequence of operations")
	}
	n, err := tree.From(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

func compact(n *tree.Node) string {
	b, err := json.Marshal(n)
	if err != nil {
		return n.Kind().String()
	}
	return string(b)
}
