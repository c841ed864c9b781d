package patch

import (
	"fmt"
	"strings"

	"github.com/vango-dev/vstore/pkg/tree"
)

// ParsePointer converts a JSON pointer such as "/items/0/name" to a path.
// The empty pointer is the root.
func ParsePointer(ptr string) (tree.Path, error) {
	if ptr == "" {
		return tree.Path{}, nil
	}
	if !strings.HasPrefix(ptr, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPointer, ptr)
	}
	parts := strings.Split(ptr[1:], "/")
	path := make(tree.Path, len(parts))
	for i, p := range parts {
		if strings.Contains(strings.ReplaceAll(strings.ReplaceAll(p, "~0", ""), "~1", ""), "~") {
			return nil, fmt.Errorf("%w: bad escape in %q", ErrInvalidPointer, ptr)
		}
		path[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return path, nil
}

// FormatPointer renders path as a JSON pointer.
func FormatPointer(path tree.Path) string {
	var b strings.Builder
	for _, k := range path {
		b.WriteByte('/')
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(k, "~", "~0"), "/", "~1"))
	}
	return b.String()
}
