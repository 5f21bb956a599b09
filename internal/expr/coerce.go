package expr

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/islet/internal/ir"
)

// Truthy reports JavaScript truthiness: nil, false, 0, NaN and "" are falsy.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case string:
		return val != ""
	case int:
		return val != 0
	default:
		return true
	}
}

// ToNumber converts v with JavaScript Number() semantics.
// nil (undefined) converts to NaN.
func ToNumber(v any) float64 {
	switch val := v.(type) {
	case nil:
		return math.NaN()
	case bool:
		if val {
			return 1
		}
		return 0
	case float64:
		return val
	case string:
		return parseNumber(val)
	case []any:
		switch len(val) {
		case 0:
			return 0
		case 1:
			return ToNumber(ToString(val[0]))
		default:
			return math.NaN()
		}
	case map[string]any, *Closure:
		return math.NaN()
	default:
		n := ir.Normalize(v)
		if f, ok := n.(float64); ok {
			return f
		}
		return math.NaN()
	}
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	// strconv accepts forms JavaScript does not ("inf", "nan", "1_000").
	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToString converts v to its display string. nil renders as the empty
// string; arrays join their elements with commas as JavaScript does.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return ir.FormatNumber(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = ToString(elem)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	case *Closure:
		return "[function]"
	default:
		return ToString(ir.Normalize(v))
	}
}

// LooseEqual implements ==. Arrays and objects compare structurally.
func LooseEqual(a, b any) bool {
	a, b = normalizeScalar(a), normalizeScalar(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case float64:
		switch bv := b.(type) {
		case float64:
			return av == bv
		case string, bool:
			return av == ToNumber(bv)
		}
	case string:
		switch bv := b.(type) {
		case string:
			return av == bv
		case float64:
			return ToNumber(av) == bv
		case bool:
			return ToNumber(av) == ToNumber(bv)
		case []any:
			return av == ToString(bv)
		}
	case bool:
		switch bv := b.(type) {
		case bool:
			return av == bv
		default:
			return LooseEqual(ToNumber(av), bv)
		}
	case []any:
		switch bv := b.(type) {
		case string:
			return ToString(av) == bv
		case float64:
			return ToNumber(av) == bv
		}
	}
	if bb, ok := b.(bool); ok {
		return LooseEqual(a, ToNumber(bb))
	}
	return StrictEqual(a, b)
}

// StrictEqual implements ===. Arrays and objects compare structurally.
func StrictEqual(a, b any) bool {
	a, b = normalizeScalar(a), normalizeScalar(b)
	switch av := a.(type) {
	case nil:
		return b == nil
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case *Closure:
		bv, ok := b.(*Closure)
		return ok && av == bv
	default:
		return reflect.DeepEqual(ir.Normalize(a), ir.Normalize(b))
	}
}

// Equal is structural equality used to decide whether a state change is
// observable. NaN equals NaN here, unlike ===.
func Equal(a, b any) bool {
	fa, aok := normalizeScalar(a).(float64)
	fb, bok := normalizeScalar(b).(float64)
	if aok && bok && math.IsNaN(fa) && math.IsNaN(fb) {
		return true
	}
	return StrictEqual(a, b)
}

// compare returns the result of a relational operator. Two strings compare
// lexically; anything else compares numerically and NaN is never ordered.
func compare(op string, a, b any) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case "<":
			return as < bs
		case "<=":
			return as <= bs
		case ">":
			return as > bs
		default:
			return as >= bs
		}
	}
	x, y := ToNumber(a), ToNumber(b)
	switch op {
	case "<":
		return x < y
	case "<=":
		return x <= y
	case ">":
		return x > y
	default:
		return x >= y
	}
}

func normalizeScalar(v any) any {
	switch v.(type) {
	case nil, bool, float64, string, []any, map[string]any, *Closure:
		return v
	default:
		return ir.Normalize(v)
	}
}
