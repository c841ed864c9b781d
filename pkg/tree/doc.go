// Package tree implements the immutable state value shared by a store.
//
// A state value is a tree of *Node. Nodes are never modified after they are
// built: the only way to "change" a node is to derive a new one with one of
// the persistent helpers (WithChild, WithoutChild, Appended, Inserted), which
// copy the receiver and reuse every child pointer that was not replaced.
//
// Because untouched subtrees keep their pointer identity across versions,
// comparing two versions along a path is usually a pointer comparison:
//
//	v1, _ := tree.From(map[string]any{"text": "a", "num": 1})
//	num, _ := tree.From(2)
//	v2, _ := v1.WithChild("num", num)
//
//	a1, _ := v1.Child("text")
//	a2, _ := v2.Child("text")
//	// a1 == a2: "text" was not rewritten
//
// Paths address nodes from the root. They print in JSONPath-like form,
// for example $.todos[0].title, and are parsed back with ParsePath.
package tree
