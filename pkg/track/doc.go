// Package track records which parts of a state tree a consumer reads, and
// reports whether two versions differ along those parts.
//
// A Tracker belongs to one consumer. Each render is a read session:
//
//	v := tr.Begin(snapshot)
//	title := v.Get("todos").Index(0).Get("title").AsString()
//	paths := tr.End()
//
//	// later, with a newer snapshot
//	if track.PathsDiffer(snapshot, next, paths) {
//	    // re-render
//	}
//
// Navigating (Get, Index, At) records a visit of the child path. Len and
// Keys record a shape read. Value and the As* accessors record a value
// read. A visited path that was not navigated further is treated as read in
// full, so handing a sub-view to code that never reads it still counts as a
// dependency on that whole subtree.
package track
