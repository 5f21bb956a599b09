package ir

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// DecodeValue decodes a raw JSON value into its runtime form.
// Numbers become float64; an absent value decodes to nil.
func DecodeValue(data []byte) (any, error) {
	if isNullRaw(data) {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Normalize converts Go values supplied by callers (ints, typed slices and
// maps, structs) into the runtime value shapes. Values that are already
// runtime-shaped are returned unchanged.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil, bool, float64, string:
		return val
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Normalize(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Normalize(elem)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = Normalize(iter.Value().Interface())
			}
			return out
		}
	}

	// Structs and anything else: round-trip through encoding/json.
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	out, err := DecodeValue(data)
	if err != nil {
		return fmt.Sprint(v)
	}
	return out
}

// Clone deep-copies arrays and objects. Scalars are returned as-is.
func Clone(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	default:
		return val
	}
}

// SplitPath splits a dotted path into segments. Empty segments are dropped,
// so "" and "." both yield no segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinPath joins two dotted paths.
func JoinPath(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "." + b
	}
}

// ArrayIndex parses a path segment as a non-negative array index.
func ArrayIndex(seg string) (int, bool) {
	if seg == "" || (len(seg) > 1 && seg[0] == '0') {
		return 0, false
	}
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Lookup reads segments from v. A segment that cannot be resolved yields nil;
// "length" resolves on arrays and strings.
func Lookup(v any, segments []string) any {
	cur := v
	for _, seg := range segments {
		switch c := cur.(type) {
		case map[string]any:
			cur = c[seg]
		case []any:
			if seg == "length" {
				cur = float64(len(c))
				continue
			}
			idx, ok := ArrayIndex(seg)
			if !ok || idx >= len(c) {
				return nil
			}
			cur = c[idx]
		case string:
			if seg == "length" {
				cur = float64(len([]rune(c)))
				continue
			}
			return nil
		default:
			return nil
		}
	}
	return cur
}

// LookupPath is Lookup over a dotted path.
func LookupPath(v any, path string) any {
	return Lookup(v, SplitPath(path))
}
