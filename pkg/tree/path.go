package tree

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is a sequence of child keys from the root. Array items are addressed
// by their decimal index.
type Path []string

// Root is the empty path.
var Root = Path{}

// Child returns a new path extended with key. The receiver is not modified.
func (p Path) Child(key string) Path {
	c := make(Path, len(p), len(p)+1)
	copy(c, p)
	return append(c, key)
}

// Index returns a new path extended with an array index.
func (p Path) Index(i int) Path {
	return p.Child(strconv.Itoa(i))
}

// Parent returns the path without its last key. The root is its own parent.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1:len(p)-1]
}

// Last returns the last key, or "" for the root.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// HasPrefix reports whether prefix is a (not necessarily strict) prefix of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both paths have the same keys.
func (p Path) Equal(o Path) bool {
	return len(p) == len(o) && p.HasPrefix(o)
}

// String renders the path as $.a.b[0]. Keys that are not plain identifiers
// are quoted: $.'a.b'.
func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, key := range p {
		switch {
		case isDecimal(key):
			b.WriteByte('[')
			b.WriteString(key)
			b.WriteByte(']')
		case isPlain(key):
			b.WriteByte('.')
			b.WriteString(key)
		default:
			b.WriteString(".'")
			b.WriteString(strings.ReplaceAll(strings.ReplaceAll(key, `\`, `\\`), "'", `\'`))
			b.WriteByte('\'')
		}
	}
	return b.String()
}

// ParsePath parses the form produced by Path.String. The leading "$" is
// optional, and a bare dotted form such as "todos.0.title" is accepted.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "$" {
		return Path{}, nil
	}
	rest := s
	if rest[0] == '$' {
		rest = rest[1:]
	} else if rest[0] != '.' && rest[0] != '[' {
		rest = "." + rest
	}

	var p Path
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			if rest == "" {
				return nil, fmt.Errorf("path %q: trailing '.'", s)
			}
			if rest[0] == '\'' {
				key, n, err := parseQuoted(rest)
				if err != nil {
					return nil, fmt.Errorf("path %q: %w", s, err)
				}
				p = append(p, key)
				rest = rest[n:]
				continue
			}
			end := strings.IndexAny(rest, ".[")
			if end == -1 {
				end = len(rest)
			}
			if end == 0 {
				return nil, fmt.Errorf("path %q: empty key", s)
			}
			p = append(p, rest[:end])
			rest = rest[end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				return nil, fmt.Errorf("path %q: unterminated '['", s)
			}
			idx := rest[1:end]
			if !isDecimal(idx) {
				return nil, fmt.Errorf("path %q: invalid index %q", s, idx)
			}
			p = append(p, idx)
			rest = rest[end+1:]
		default:
			return nil, fmt.Errorf("path %q: unexpected %q", s, rest[0])
		}
	}
	return p, nil
}

// MustParsePath is like ParsePath but panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseQuoted(s string) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("dangling escape")
			}
			i++
			b.WriteByte(s[i])
		case '\'':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(s[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated quote")
}

func isDecimal(s string) bool {
	_, err := parseIndex(s)
	return err == nil
}

func isPlain(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '-':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
