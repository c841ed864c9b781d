package patch

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vango-dev/vstore/pkg/draft"
	"github.com/vango-dev/vstore/pkg/tree"
)

func mustJSON(t *testing.T, s string) *tree.Node {
	t.Helper()
	n, err := tree.FromJSON([]byte(s))
	if err != nil {
		t.Fatalf("FromJSON(%s): %v", s, err)
	}
	return n
}

func apply(t *testing.T, doc, p string) (*tree.Node, *tree.Node, error) {
	t.Helper()
	base := mustJSON(t, doc)
	m, err := Mutation([]byte(p))
	if err != nil {
		return base, nil, err
	}
	res, err := draft.Produce(base, m)
	return base, res.Root, err
}

func TestPointer(t *testing.T) {
	tests := []struct {
		ptr  string
		want tree.Path
	}{
		{"", tree.Path{}},
		{"/a", tree.Path{"a"}},
		{"/a/0/b", tree.Path{"a", "0", "b"}},
		{"/a~1b/c~0d", tree.Path{"a/b", "c~d"}},
		{"/", tree.Path{""}},
	}
	for _, tt := range tests {
		t.Run(tt.ptr, func(t *testing.T) {
			got, err := ParsePointer(tt.ptr)
			if err != nil {
				t.Fatalf("ParsePointer: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParsePointer(%q) = %v, want %v", tt.ptr, got, tt.want)
			}
			if back := FormatPointer(got); back != tt.ptr {
				t.Errorf("FormatPointer = %q, want %q", back, tt.ptr)
			}
		})
	}

	for _, bad := range []string{"a", "/a~2", "/~"} {
		if _, err := ParsePointer(bad); !errors.Is(err, ErrInvalidPointer) {
			t.Errorf("ParsePointer(%q) err = %v, want ErrInvalidPointer", bad, err)
		}
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		patch string
		want  string
	}{
		{"add member", `{"a":1}`, `[{"op":"add","path":"/b","value":2}]`, `{"a":1,"b":2}`},
		{"add replaces member", `{"a":1}`, `[{"op":"add","path":"/a","value":[1]}]`, `{"a":[1]}`},
		{"add inserts", `{"l":[1,3]}`, `[{"op":"add","path":"/l/1","value":2}]`, `{"l":[1,2,3]}`},
		{"add appends", `{"l":[1]}`, `[{"op":"add","path":"/l/-","value":2}]`, `{"l":[1,2]}`},
		{"add root", `{"a":1}`, `[{"op":"add","path":"","value":{"z":0}}]`, `{"z":0}`},
		{"add null", `{}`, `[{"op":"add","path":"/n","value":null}]`, `{"n":null}`},
		{"remove", `{"a":1,"b":2}`, `[{"op":"remove","path":"/a"}]`, `{"b":2}`},
		{"remove item", `{"l":[1,2,3]}`, `[{"op":"remove","path":"/l/0"}]`, `{"l":[2,3]}`},
		{"replace", `{"a":{"b":1}}`, `[{"op":"replace","path":"/a/b","value":"x"}]`, `{"a":{"b":"x"}}`},
		{"move", `{"a":{"b":1},"c":{}}`, `[{"op":"move","from":"/a/b","path":"/c/d"}]`, `{"a":{},"c":{"d":1}}`},
		{"copy", `{"a":[1]}`, `[{"op":"copy","from":"/a","path":"/b"}]`, `{"a":[1],"b":[1]}`},
		{"test passes", `{"a":2}`, `[{"op":"test","path":"/a","value":2.0},{"op":"add","path":"/ok","value":true}]`, `{"a":2,"ok":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got, err := apply(t, tt.doc, tt.patch)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if want := mustJSON(t, tt.want); !tree.Equal(got, want) {
				out, _ := json.Marshal(got)
				t.Errorf("got %s, want %s", out, tt.want)
			}
		})
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		patch string
		want  error
	}{
		{"remove missing", `{}`, `[{"op":"remove","path":"/a"}]`, draft.ErrPathNotFound},
		{"replace missing", `{}`, `[{"op":"replace","path":"/a","value":1}]`, draft.ErrPathNotFound},
		{"add under missing", `{}`, `[{"op":"add","path":"/a/b","value":1}]`, draft.ErrPathNotFound},
		{"test fails", `{"a":1}`, `[{"op":"test","path":"/a","value":2}]`, ErrTestFailed},
		{"move missing", `{}`, `[{"op":"move","from":"/x","path":"/y"}]`, draft.ErrPathNotFound},
		{"insert out of range", `{"l":[]}`, `[{"op":"add","path":"/l/5","value":1}]`, draft.ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := apply(t, tt.doc, tt.patch)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, draft.ErrMutationFailed) {
				t.Errorf("err = %v, want a mutation failure", err)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		patch string
		want  error
	}{
		{"unknown op", `[{"op":"frob","path":"/a"}]`, ErrUnknownOp},
		{"missing value", `[{"op":"add","path":"/a"}]`, ErrMissingValue},
		{"bad pointer", `[{"op":"remove","path":"a"}]`, ErrInvalidPointer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.patch)); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Decode([]byte(`{"not":"an array"}`)); err == nil {
		t.Error("expected error for non-array document")
	}
}

func TestFailedPatchIsAtomic(t *testing.T) {
	base, _, err := apply(t, `{"a":1}`,
		`[{"op":"add","path":"/b","value":2},{"op":"remove","path":"/missing"}]`)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := base.Child("b"); ok {
		t.Error("base must not change")
	}
}

func TestPatchKeepsUntouchedSubtrees(t *testing.T) {
	base, got, err := apply(t, `{"a":{"deep":[1,2]},"b":{"x":1}}`, `[{"op":"replace","path":"/b/x","value":2}]`)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	oldA, _ := base.Child("a")
	newA, _ := got.Child("a")
	if oldA != newA {
		t.Error("untouched subtree must be shared")
	}
}

func TestMergeMutation(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		patch string
		want  string
	}{
		{"set and remove", `{"a":1,"b":2}`, `{"a":null,"c":3}`, `{"b":2,"c":3}`},
		{"nested", `{"a":{"x":1,"y":2}}`, `{"a":{"y":null,"z":3}}`, `{"a":{"x":1,"z":3}}`},
		{"remove missing is a no-op", `{"a":1}`, `{"b":null}`, `{"a":1}`},
		{"replace non-object", `{"a":[1,2]}`, `{"a":{"k":1}}`, `{"a":{"k":1}}`},
		{"array replaces", `{"a":{"k":1}}`, `{"a":[1]}`, `{"a":[1]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := MergeMutation([]byte(tt.patch))
			if err != nil {
				t.Fatalf("MergeMutation: %v", err)
			}
			res, err := draft.Produce(mustJSON(t, tt.doc), m)
			if err != nil {
				t.Fatalf("Produce: %v", err)
			}
			if want := mustJSON(t, tt.want); !tree.Equal(res.Root, want) {
				out, _ := json.Marshal(res.Root)
				t.Errorf("got %s, want %s", out, tt.want)
			}
		})
	}

	if _, err := MergeMutation([]byte(`{`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestDiff(t *testing.T) {
	old := mustJSON(t, `{"a":1,"b":{"c":2},"d":3}`)
	next := mustJSON(t, `{"a":1,"b":{"c":5},"e":true}`)

	out, err := Diff(old, next)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	got := mustJSON(t, string(out))
	want := mustJSON(t, `{"b":{"c":5},"d":null,"e":true}`)
	if !tree.Equal(got, want) {
		t.Errorf("Diff = %s", out)
	}

	m, err := MergeMutation(out)
	if err != nil {
		t.Fatalf("MergeMutation: %v", err)
	}
	res, err := draft.Produce(old, m)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if !tree.Equal(res.Root, next) {
		t.Error("applying the diff must yield next")
	}
}
