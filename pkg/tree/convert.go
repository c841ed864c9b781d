package tree

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// From converts a Go value to a tree.
//
// Supported values: nil, *Node (returned as is), bool, integer and float
// kinds, string, json.Number, maps with string keys (keys sorted),
// yaml.MapSlice (order kept), slices and arrays, structs (exported fields,
// named by their json tag when present), and pointers or interfaces to any
// of these.
func From(v any) (*Node, error) {
	if n, ok := v.(*Node); ok {
		if n == nil {
			return null, nil
		}
		return n, nil
	}
	return fromValue(reflect.ValueOf(v), 0)
}

// MustFrom is like From but panics on error. Intended for literals in tests
// and examples.
func MustFrom(v any) *Node {
	n, err := From(v)
	if err != nil {
		panic(err)
	}
	return n
}

const maxDepth = 512

var (
	nodeType     = reflect.TypeOf((*Node)(nil))
	numberType   = reflect.TypeOf(json.Number(""))
	mapSliceType = reflect.TypeOf(yaml.MapSlice(nil))
)

func fromValue(rv reflect.Value, depth int) (*Node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrUnsupported, maxDepth)
	}
	if !rv.IsValid() {
		return null, nil
	}

	switch rv.Type() {
	case nodeType:
		if rv.IsNil() {
			return null, nil
		}
		return rv.Interface().(*Node), nil
	case numberType:
		return fromNumber(rv.Interface().(json.Number))
	case mapSliceType:
		return fromMapSlice(rv.Interface().(yaml.MapSlice), depth)
	}

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return null, nil
		}
		return fromValue(rv.Elem(), depth+1)
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Float(float64(u)), nil
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice:
		if rv.IsNil() {
			return null, nil
		}
		return fromList(rv, depth)
	case reflect.Array:
		return fromList(rv, depth)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key type %s", ErrUnsupported, rv.Type().Key())
		}
		if rv.IsNil() {
			return null, nil
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			child, err := fromValue(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())), depth+1)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			fields = append(fields, Field{Key: k, Value: child})
		}
		return Object(fields...), nil
	case reflect.Struct:
		return fromStruct(rv, depth)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, rv.Type())
	}
}

func fromList(rv reflect.Value, depth int) (*Node, error) {
	items := make([]*Node, rv.Len())
	for i := range items {
		child, err := fromValue(rv.Index(i), depth+1)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		items[i] = child
	}
	return Array(items...), nil
}

func fromStruct(rv reflect.Value, depth int) (*Node, error) {
	t := rv.Type()
	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		omitEmpty := false
		if tag, ok := sf.Tag.Lookup("json"); ok {
			if tag == "-" {
				continue
			}
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitEmpty = true
				}
			}
		}
		fv := rv.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		child, err := fromValue(fv, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		fields = append(fields, Field{Key: name, Value: child})
	}
	return Object(fields...), nil
}

func fromMapSlice(ms yaml.MapSlice, depth int) (*Node, error) {
	fields := make([]Field, 0, len(ms))
	for _, item := range ms {
		key := fmt.Sprint(item.Key)
		child, err := fromValue(reflect.ValueOf(item.Value), depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: child})
	}
	return Object(fields...), nil
}

func fromNumber(num json.Number) (*Node, error) {
	if i, err := num.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := num.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: number %q", ErrUnsupported, num.String())
	}
	return Float(f), nil
}
