package track

import (
	"strings"

	"github.com/vango-dev/vstore/pkg/tree"
)

// Access describes how a path was read. Values combine with bitwise or.
type Access uint8

const (
	// AccessVisit means the path was navigated to.
	AccessVisit Access = 1 << iota

	// AccessShape means the keys or length of the node were read.
	AccessShape

	// AccessValue means the whole subtree was read.
	AccessValue
)

// String returns a compact form such as "visit|shape".
func (a Access) String() string {
	var parts []string
	if a&AccessVisit != 0 {
		parts = append(parts, "visit")
	}
	if a&AccessShape != 0 {
		parts = append(parts, "shape")
	}
	if a&AccessValue != 0 {
		parts = append(parts, "value")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Entry is one recorded path.
type Entry struct {
	Path   tree.Path
	Access Access

	// Extended is true when another recorded path goes below Path.
	Extended bool
}

// whole reports whether the subtree must be compared in full: it was read
// in full, or only navigated to and never read below.
func (e Entry) whole() bool {
	return e.Access&AccessValue != 0 || (e.Access == AccessVisit && !e.Extended)
}

// PathSet is the set of paths read in one session. The zero value is empty.
// A PathSet returned by Tracker.End is never modified afterwards.
type PathSet struct {
	entries []Entry
	index   map[string]int
}

func newPathSet() *PathSet {
	return &PathSet{index: make(map[string]int)}
}

func (s *PathSet) add(path tree.Path, access Access) {
	key := path.String()
	if i, ok := s.index[key]; ok {
		s.entries[i].Access |= access
		return
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, Entry{Path: append(tree.Path(nil), path...), Access: access})
}

// seal computes Extended for every entry.
func (s *PathSet) seal() PathSet {
	for i := range s.entries {
		p := s.entries[i].Path
		for j := range s.entries {
			q := s.entries[j].Path
			if len(q) > len(p) && q.HasPrefix(p) {
				s.entries[i].Extended = true
				break
			}
		}
	}
	return *s
}

// Len returns the number of distinct paths.
func (s PathSet) Len() int { return len(s.entries) }

// Empty reports whether nothing was read.
func (s PathSet) Empty() bool { return len(s.entries) == 0 }

// Entries returns a copy of the recorded entries in first-read order.
func (s PathSet) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Contains reports whether path was recorded.
func (s PathSet) Contains(path tree.Path) bool {
	_, ok := s.index[path.String()]
	return ok
}

// Access returns how path was read, or 0.
func (s PathSet) Access(path tree.Path) Access {
	if i, ok := s.index[path.String()]; ok {
		return s.entries[i].Access
	}
	return 0
}

// Leaves returns the paths that are compared in full, in first-read order.
func (s PathSet) Leaves() []tree.Path {
	var out []tree.Path
	for _, e := range s.entries {
		if e.whole() {
			out = append(out, e.Path)
		}
	}
	return out
}

// String lists the entries, one per line.
func (s PathSet) String() string {
	var b strings.Builder
	for i, e := range s.entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Path.String())
		b.WriteByte(' ')
		b.WriteString(e.Access.String())
	}
	return b.String()
}

// PathsDiffer reports whether old and next differ along any path in paths.
//
// Full reads, and visited paths with nothing else recorded at or below
// them, compare the whole subtree: pointer identity first, deep equality
// second. Shape reads compare keys and lengths. The walk stops at the first difference.
// An empty set never differs.
func PathsDiffer(old, next *tree.Node, paths PathSet) bool {
	if paths.Empty() || old == next {
		return false
	}
	for _, e := range paths.entries {
		whole := e.whole()
		shape := e.Access&AccessShape != 0
		if !whole && !shape {
			continue
		}
		a, aok := old.At(e.Path)
		b, bok := next.At(e.Path)
		if aok != bok {
			return true
		}
		if !aok || a == b {
			continue
		}
		if whole {
			if !tree.Equal(a, b) {
				return true
			}
			continue
		}
		if !tree.SameKeys(a, b) {
			return true
		}
	}
	return false
}
