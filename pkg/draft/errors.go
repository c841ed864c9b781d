package draft

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vstore/pkg/tree"
)

// ErrMutationFailed is matched by every error returned from a failed
// mutation, whether it returned an error or panicked.
var ErrMutationFailed = errors.New("draft: mutation failed")

// ErrPathNotFound is returned when a write goes through a missing key.
var ErrPathNotFound = errors.New("draft: path not found")

// ErrEmptyPath is returned by operations that need a parent, such as Delete
// on the root.
var ErrEmptyPath = errors.New("draft: operation needs a non-root path")

// ErrNotNumber is returned by Increment on a non-number node.
var ErrNotNumber = errors.New("draft: node is not a number")

// ErrDraftFinalized is returned when a draft is used after its mutation
// returned.
var ErrDraftFinalized = errors.New("draft: draft used after mutation returned")

// Re-exported from tree for errors.Is convenience.
var (
	ErrNotContainer    = tree.ErrNotContainer
	ErrIndexOutOfRange = tree.ErrIndexOutOfRange
	ErrInvalidIndex    = tree.ErrInvalidIndex
)

// MutationError wraps the cause of a failed mutation.
type MutationError struct {
	// Err is the error returned by the mutation, or the recovered panic.
	Err error

	// Panicked is true when the mutation panicked instead of returning.
	Panicked bool
}

// Error implements the error interface.
func (e *MutationError) Error() string {
	if e.Panicked {
		return "draft: mutation panicked: " + e.Err.Error()
	}
	return "draft: mutation failed: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMutationFailed) true.
func (e *MutationError) Is(target error) bool { return target == ErrMutationFailed }

// PathError records the operation and path of a failed draft write.
type PathError struct {
	Op   string
	Path tree.Path
	Err  error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("draft: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error { return e.Err }
