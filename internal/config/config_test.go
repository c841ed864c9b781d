package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/draft"
	"github.com/vango-dev/vstore/pkg/tree"
)

const example = `name: cart
state:
  text: a
  num: 1
  items: []
bindings:
  - name: x
    reads: [$.text]
  - name: y
    protocol: synchronized
    reads: [$.text, $.num]
  - name: z
    protocol: deferred
    delay: 1s
    reads: [$.num]
steps:
  - set: {path: $.text, value: b}
  - increment: {path: $.num}
  - increment: {path: $.num, by: 2.5}
  - append: {path: $.items, value: {title: milk}}
  - merge: {path: $.meta, value: {owner: ann}}
  - patch:
      - {op: replace, path: /text, value: c}
  - delete: $.meta
  - wait: 1s
`

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func code(t *testing.T, err error) string {
	t.Helper()
	var ve *errors.Error
	if !stderrors.As(err, &ve) {
		t.Fatalf("error %v is not *errors.Error", err)
	}
	return ve.Code
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Name != DefaultName {
		t.Errorf("Name = %q, want %q", cfg.Name, DefaultName)
	}
	if cfg.Devtools.Addr != DefaultDevtoolsAddr {
		t.Errorf("Devtools.Addr = %q, want %q", cfg.Devtools.Addr, DefaultDevtoolsAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := cfg.InitialState().Kind(); got != tree.KindObject {
		t.Errorf("InitialState kind = %v, want object", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil || code(t, err) != "E100" {
		t.Fatalf("missing file: err = %v, want E100", err)
	}

	writeFile(t, dir, example)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "cart" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if got := cfg.InitialState().Keys(); strings.Join(got, ",") != "text,num,items" {
		t.Errorf("state keys = %v, want file order", got)
	}

	x, ok := cfg.Binding("x")
	if !ok || x.Protocol != ProtocolImmediate {
		t.Errorf("binding x = %+v, want default protocol", x)
	}
	z, _ := cfg.Binding("z")
	if z.DelayDuration() != time.Second {
		t.Errorf("z delay = %v, want 1s", z.DelayDuration())
	}
	y, _ := cfg.Binding("y")
	if len(y.Paths()) != 2 || !y.Paths()[1].Equal(tree.Path{"num"}) {
		t.Errorf("y paths = %v", y.Paths())
	}
	if _, ok := cfg.Binding("nope"); ok {
		t.Error("unknown binding found")
	}
}

func TestStepsRun(t *testing.T) {
	cfg, err := Parse(FileName, []byte(example))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	kinds := []string{StepSet, StepIncrement, StepIncrement, StepAppend, StepMerge, StepPatch, StepDelete, StepWait}
	if len(cfg.Steps) != len(kinds) {
		t.Fatalf("got %d steps, want %d", len(cfg.Steps), len(kinds))
	}

	root := cfg.InitialState()
	for i, s := range cfg.Steps {
		if s.Kind() != kinds[i] {
			t.Errorf("step %d kind = %q, want %q", i, s.Kind(), kinds[i])
		}
		if s.String() == "" {
			t.Errorf("step %d has no summary", i)
		}
		if s.Kind() == StepWait {
			if s.Mutation() != nil || s.WaitDuration() != time.Second {
				t.Errorf("wait step = %v %v", s.Mutation() != nil, s.WaitDuration())
			}
			continue
		}
		res, err := draft.Produce(root, s.Mutation())
		if err != nil {
			t.Fatalf("step %d (%s): %v", i, s, err)
		}
		root = res.Root
	}

	want := tree.MustFrom(map[string]any{
		"text":  "c",
		"num":   4.5,
		"items": []any{map[string]any{"title": "milk"}},
	})
	if !tree.Equal(root, want) {
		t.Errorf("final state = %v", root.ToGo())
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		code   string
		detail string
	}{
		{
			name: "bad yaml",
			yaml: "name: [\n",
			code: "E101",
		},
		{
			name: "unknown field",
			yaml: "name: a\ncolour: red\n",
			code: "E101",
		},
		{
			name:   "unknown protocol",
			yaml:   "bindings:\n  - name: a\n    protocol: eager\n    reads: [$.a]\n",
			code:   "E121",
			detail: "$.bindings[0].protocol",
		},
		{
			name:   "duplicate binding",
			yaml:   "bindings:\n  - {name: a, reads: [$.a]}\n  - {name: a, reads: [$.b]}\n",
			code:   "E120",
			detail: "declared twice",
		},
		{
			name:   "missing name",
			yaml:   "bindings:\n  - {reads: [$.a]}\n",
			code:   "E120",
			detail: "$.bindings[0].name",
		},
		{
			name:   "no reads",
			yaml:   "bindings:\n  - {name: a}\n",
			code:   "E120",
			detail: "reads nothing",
		},
		{
			name:   "bad read path",
			yaml:   "bindings:\n  - {name: a, reads: ['$.a[x]']}\n",
			code:   "E122",
			detail: "$.bindings[0].reads[0]",
		},
		{
			name:   "delay on immediate",
			yaml:   "bindings:\n  - {name: a, reads: [$.a], delay: 1s}\n",
			code:   "E120",
			detail: "only deferred",
		},
		{
			name:   "bad delay",
			yaml:   "bindings:\n  - {name: a, protocol: deferred, reads: [$.a], delay: soon}\n",
			code:   "E124",
			detail: "$.bindings[0].delay",
		},
		{
			name:   "empty step",
			yaml:   "steps:\n  - {}\n",
			code:   "E123",
			detail: "no operation",
		},
		{
			name:   "two ops",
			yaml:   "steps:\n  - {delete: $.a, wait: 1s}\n",
			code:   "E123",
			detail: "delete, wait",
		},
		{
			name:   "merge non-mapping",
			yaml:   "steps:\n  - merge: {path: $.a, value: 3}\n",
			code:   "E123",
			detail: "$.steps[0].merge.value",
		},
		{
			name:   "bad patch",
			yaml:   "steps:\n  - patch: [{op: shove, path: /a}]\n",
			code:   "E141",
			detail: "$.steps[0].patch",
		},
		{
			name: "negative wait",
			yaml: "steps:\n  - wait: -1s\n",
			code: "E124",
		},
		{
			name:   "bad addr",
			yaml:   "devtools:\n  addr: nope\n",
			code:   "E125",
			detail: "$.devtools.addr",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(FileName, []byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := code(t, err); got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
			if tt.detail != "" && !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("error %q does not mention %q", err, tt.detail)
			}
		})
	}
}

func TestValidateLocation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bindings:\n  - name: a\n    protocol: eager\n    reads: [$.a]\n")
	_, err := LoadFile(path)
	var ve *errors.Error
	if !stderrors.As(err, &ve) {
		t.Fatalf("err = %v", err)
	}
	if ve.Location == nil || ve.Location.Line != 3 {
		t.Fatalf("Location = %v, want line 3", ve.Location)
	}
	if len(ve.Context) == 0 {
		t.Error("expected source context")
	}
}

func TestFindScenario(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "name: a\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindScenario(nested)
	if err != nil {
		t.Fatalf("FindScenario: %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindScenario = %q, want %q", got, want)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists mismatch")
	}
}
