// Package scope provides the component scope tree that stores are
// provided through.
//
// An Owner represents one mounted component. Owners form a hierarchy that
// mirrors the component tree; values set on an Owner are visible to its
// descendants, and disposing an Owner disposes its subtree and runs its
// cleanups in reverse registration order.
//
// A render is bracketed by StartRender and EndRender. Hook slots give
// per-component state a stable identity across renders, and callbacks
// registered with OnCommit run when the render ends.
package scope
