package vtest

import (
	"sync"
	"testing"

	"github.com/vango-dev/vstore/pkg/draft"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/tree"
)

// NewStore creates a store from init or fails the test.
func NewStore(t testing.TB, init any, opts ...store.Option) *store.Store {
	t.Helper()
	s, err := store.New(init, opts...)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return s
}

// MustUpdate applies m or fails the test.
func MustUpdate(t testing.TB, s *store.Store, m draft.Mutation) {
	t.Helper()
	if err := s.Update(m); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

// Set returns a mutation that sets path to v.
func Set(path string, v any) draft.Mutation {
	p := tree.MustParsePath(path)
	return func(d *draft.Draft) error { return d.Set(p, v) }
}

// Recorder counts render callbacks by name.
type Recorder struct {
	mu     sync.Mutex
	counts map[string]int
	order  []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{counts: make(map[string]int)}
}

// Func returns a render callback that records name.
func (r *Recorder) Func(name string) func() {
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.counts[name]++
		r.order = append(r.order, name)
	}
}

// Count returns how often name rendered.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

// Order returns the names in render order.
func (r *Recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Reset forgets every recorded render.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = make(map[string]int)
	r.order = nil
}

// ExpectRenders fails the test if name did not render exactly want times.
func ExpectRenders(t testing.TB, r *Recorder, name string, want int) {
	t.Helper()
	if got := r.Count(name); got != want {
		t.Errorf("%s rendered %d times, want %d (order %v)", name, got, want, r.Order())
	}
}

// ExpectValue fails the test if the store's current value at path is not
// equal to want.
func ExpectValue(t testing.TB, s *store.Store, path string, want any) {
	t.Helper()
	got, ok := s.Current().Root.At(tree.MustParsePath(path))
	if !ok {
		t.Errorf("%s: missing", path)
		return
	}
	w, err := tree.From(want)
	if err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	if !tree.Equal(got, w) {
		t.Errorf("%s = %v, want %v", path, got.ToGo(), want)
	}
}
