package expr

import (
	"encoding/json"
	"math"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/roach88/islet/internal/ir"
)

// Call targets accepted by the evaluator.
const (
	TargetArray  = "array"
	TargetString = "string"
	TargetMath   = "Math"
	TargetDate   = "Date"
	TargetObject = "Object"
	TargetJSON   = "JSON"
)

type method func(ctx *Context, recv any, args []any) any

// whitelist maps target → method name → implementation. Nothing outside
// this table can be invoked from an expression. It is filled in init
// because lambdas passed to array methods re-enter Evaluate.
var whitelist map[string]map[string]method

func init() {
	whitelist = map[string]map[string]method{
		TargetArray: {
			"length":    func(_ *Context, r any, _ []any) any { return float64(len(asArray(r))) },
			"map":       arrayMap,
			"filter":    arrayFilter,
			"find":      arrayFind,
			"findIndex": arrayFindIndex,
			"some":      arraySome,
			"every":     arrayEvery,
			"includes":  arrayIncludes,
			"indexOf":   arrayIndexOf,
			"join":      arrayJoin,
			"slice":     arraySlice,
			"concat":    arrayConcat,
			"reverse":   arrayReverse,
			"sort":      arraySort,
			"reduce":    arrayReduce,
			"at":        arrayAt,
			"flat":      arrayFlat,
		},
		TargetString: {
			"length":      func(_ *Context, r any, _ []any) any { return float64(len([]rune(ToString(r)))) },
			"toUpperCase": func(_ *Context, r any, _ []any) any { return strings.ToUpper(ToString(r)) },
			"toLowerCase": func(_ *Context, r any, _ []any) any { return strings.ToLower(ToString(r)) },
			"trim":        func(_ *Context, r any, _ []any) any { return strings.TrimSpace(ToString(r)) },
			"split":       stringSplit,
			"includes":    func(_ *Context, r any, a []any) any { return strings.Contains(ToString(r), argString(a, 0)) },
			"startsWith":  func(_ *Context, r any, a []any) any { return strings.HasPrefix(ToString(r), argString(a, 0)) },
			"endsWith":    func(_ *Context, r any, a []any) any { return strings.HasSuffix(ToString(r), argString(a, 0)) },
			"indexOf":     stringIndexOf,
			"slice":       stringSlice,
			"substring":   stringSubstring,
			"replace":     func(_ *Context, r any, a []any) any { return strings.Replace(ToString(r), argString(a, 0), argString(a, 1), 1) },
			"replaceAll":  func(_ *Context, r any, a []any) any { return strings.ReplaceAll(ToString(r), argString(a, 0), argString(a, 1)) },
			"padStart":    stringPadStart,
			"padEnd":      stringPadEnd,
			"repeat":      stringRepeat,
			"charAt":      stringCharAt,
		},
		TargetMath: {
			"min":   mathMin,
			"max":   mathMax,
			"abs":   mathUnary(math.Abs),
			"floor": mathUnary(math.Floor),
			"ceil":  mathUnary(math.Ceil),
			"round": mathUnary(jsRound),
			"trunc": mathUnary(math.Trunc),
			"sqrt":  mathUnary(math.Sqrt),
			"sign":  mathUnary(jsSign),
			"pow": func(_ *Context, _ any, a []any) any {
				return math.Pow(ToNumber(argAt(a, 0)), ToNumber(argAt(a, 1)))
			},
		},
		TargetDate: {
			"now":         func(c *Context, _ any, _ []any) any { return float64(c.now().UnixMilli()) },
			"parse":       dateParse,
			"toISOString": dateISO,
			"getFullYear": dateField(func(t time.Time) int { return t.Year() }),
			"getMonth":    dateField(func(t time.Time) int { return int(t.Month()) - 1 }),
			"getDate":     dateField(func(t time.Time) int { return t.Day() }),
			"getDay":      dateField(func(t time.Time) int { return int(t.Weekday()) }),
			"getHours":    dateField(func(t time.Time) int { return t.Hour() }),
			"getMinutes":  dateField(func(t time.Time) int { return t.Minute() }),
		},
		TargetObject: {
			"keys":        objectKeys,
			"values":      objectValues,
			"entries":     objectEntries,
			"assign":      objectAssign,
			"fromEntries": objectFromEntries,
		},
		TargetJSON: {
			"stringify": jsonStringify,
			"parse":     jsonParse,
		},
	}
}

// IsWhitelisted reports whether target.method may be called.
func IsWhitelisted(target, name string) bool {
	_, ok := whitelist[target][name]
	return ok
}

// evalCall dispatches a whitelisted method. For array and string targets
// the receiver is Receiver, or the first argument when Receiver is absent.
func evalCall(x *ir.Call, ctx *Context) any {
	fn, ok := whitelist[x.Target][x.Method]
	if !ok {
		ctx.logger().Warn("rejected method call",
			"target", x.Target,
			"method", x.Method)
		return nil
	}

	args := make([]any, len(x.Args))
	for i, a := range x.Args {
		args[i] = Evaluate(a, ctx)
	}

	var recv any
	switch {
	case x.Receiver != nil:
		recv = Evaluate(x.Receiver, ctx)
	case (x.Target == TargetArray || x.Target == TargetString) && len(args) > 0:
		recv, args = args[0], args[1:]
	}

	return fn(ctx, recv, args)
}

func argAt(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func argString(args []any, i int) string {
	return ToString(argAt(args, i))
}

// argInt converts an optional integer argument; absent or NaN yields def.
func argInt(args []any, i int, def int) int {
	v := argAt(args, i)
	if v == nil {
		return def
	}
	f := ToNumber(v)
	if math.IsNaN(f) {
		return 0
	}
	if math.IsInf(f, 1) {
		return math.MaxInt32
	}
	if math.IsInf(f, -1) {
		return math.MinInt32
	}
	return int(f)
}

func asArray(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return nil
}

func asClosure(v any) *Closure {
	c, _ := v.(*Closure)
	return c
}

// relIndex resolves a possibly negative index against n, clamped to [0, n].
func relIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return max(0, min(i, n))
}

func arrayMap(_ *Context, r any, a []any) any {
	arr, fn := asArray(r), asClosure(argAt(a, 0))
	if fn == nil {
		return nil
	}
	out := make([]any, len(arr))
	for i, v := range arr {
		out[i] = fn.Call(v, float64(i))
	}
	return out
}

func arrayFilter(_ *Context, r any, a []any) any {
	arr, fn := asArray(r), asClosure(argAt(a, 0))
	if fn == nil {
		return nil
	}
	out := []any{}
	for i, v := range arr {
		if Truthy(fn.Call(v, float64(i))) {
			out = append(out, v)
		}
	}
	return out
}

func arrayFind(_ *Context, r any, a []any) any {
	arr, fn := asArray(r), asClosure(argAt(a, 0))
	if fn == nil {
		return nil
	}
	for i, v := range arr {
		if Truthy(fn.Call(v, float64(i))) {
			return v
		}
	}
	return nil
}

func arrayFindIndex(_ *Context, r any, a []any) any {
	arr, fn := asArray(r), asClosure(argAt(a, 0))
	if fn == nil {
		return -1.0
	}
	for i, v := range arr {
		if Truthy(fn.Call(v, float64(i))) {
			return float64(i)
		}
	}
	return -1.0
}

func arraySome(_ *Context, r any, a []any) any {
	arr, fn := asArray(r), asClosure(argAt(a, 0))
	if fn == nil {
		return false
	}
	for i, v := range arr {
		if Truthy(fn.Call(v, float64(i))) {
			return true
		}
	}
	return false
}

func arrayEvery(_ *Context, r any, a []any) any {
	arr, fn := asArray(r), asClosure(argAt(a, 0))
	if fn == nil {
		return false
	}
	for i, v := range arr {
		if !Truthy(fn.Call(v, float64(i))) {
			return false
		}
	}
	return true
}

func arrayIncludes(_ *Context, r any, a []any) any {
	needle := argAt(a, 0)
	return slices.ContainsFunc(asArray(r), func(v any) bool { return Equal(v, needle) })
}

func arrayIndexOf(_ *Context, r any, a []any) any {
	needle := argAt(a, 0)
	return float64(slices.IndexFunc(asArray(r), func(v any) bool { return StrictEqual(v, needle) }))
}

func arrayJoin(_ *Context, r any, a []any) any {
	sep := ","
	if len(a) > 0 && a[0] != nil {
		sep = ToString(a[0])
	}
	arr := asArray(r)
	parts := make([]string, len(arr))
	for i, v := range arr {
		parts[i] = ToString(v)
	}
	return strings.Join(parts, sep)
}

func arraySlice(_ *Context, r any, a []any) any {
	arr := asArray(r)
	start := relIndex(argInt(a, 0, 0), len(arr))
	end := relIndex(argInt(a, 1, len(arr)), len(arr))
	if start >= end {
		return []any{}
	}
	return slices.Clone(arr[start:end])
}

func arrayConcat(_ *Context, r any, a []any) any {
	out := slices.Clone(asArray(r))
	if out == nil {
		out = []any{}
	}
	for _, v := range a {
		if arr, ok := v.([]any); ok {
			out = append(out, arr...)
		} else {
			out = append(out, v)
		}
	}
	return out
}

func arrayReverse(_ *Context, r any, _ []any) any {
	out := slices.Clone(asArray(r))
	slices.Reverse(out)
	if out == nil {
		return []any{}
	}
	return out
}

// arraySort returns a sorted copy. Without a comparator, numbers sort
// numerically when every element is a number, otherwise by string form.
func arraySort(_ *Context, r any, a []any) any {
	out := slices.Clone(asArray(r))
	if out == nil {
		return []any{}
	}
	if fn := asClosure(argAt(a, 0)); fn != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return ToNumber(fn.Call(out[i], out[j])) < 0
		})
		return out
	}
	allNumbers := !slices.ContainsFunc(out, func(v any) bool {
		_, ok := v.(float64)
		return !ok
	})
	sort.SliceStable(out, func(i, j int) bool {
		if allNumbers {
			return out[i].(float64) < out[j].(float64)
		}
		return ToString(out[i]) < ToString(out[j])
	})
	return out
}

func arrayReduce(_ *Context, r any, a []any) any {
	arr, fn := asArray(r), asClosure(argAt(a, 0))
	if fn == nil {
		return nil
	}
	start := 0
	var acc any
	if len(a) > 1 {
		acc = a[1]
	} else if len(arr) > 0 {
		acc = arr[0]
		start = 1
	}
	for i := start; i < len(arr); i++ {
		acc = fn.Call(acc, arr[i], float64(i))
	}
	return acc
}

func arrayAt(_ *Context, r any, a []any) any {
	arr := asArray(r)
	i := argInt(a, 0, 0)
	if i < 0 {
		i += len(arr)
	}
	if i < 0 || i >= len(arr) {
		return nil
	}
	return arr[i]
}

func arrayFlat(_ *Context, r any, _ []any) any {
	out := []any{}
	for _, v := range asArray(r) {
		if inner, ok := v.([]any); ok {
			out = append(out, inner...)
		} else {
			out = append(out, v)
		}
	}
	return out
}

func stringSplit(_ *Context, r any, a []any) any {
	s := ToString(r)
	if len(a) == 0 || a[0] == nil {
		return []any{s}
	}
	parts := strings.Split(s, ToString(a[0]))
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out
}

func stringIndexOf(_ *Context, r any, a []any) any {
	s := ToString(r)
	idx := strings.Index(s, argString(a, 0))
	if idx < 0 {
		return -1.0
	}
	return float64(utf8.RuneCountInString(s[:idx]))
}

func stringSlice(_ *Context, r any, a []any) any {
	s := []rune(ToString(r))
	start := relIndex(argInt(a, 0, 0), len(s))
	end := relIndex(argInt(a, 1, len(s)), len(s))
	if start >= end {
		return ""
	}
	return string(s[start:end])
}

func stringSubstring(_ *Context, r any, a []any) any {
	s := []rune(ToString(r))
	start := max(0, min(argInt(a, 0, 0), len(s)))
	end := max(0, min(argInt(a, 1, len(s)), len(s)))
	if start > end {
		start, end = end, start
	}
	return string(s[start:end])
}

// maxBuilt bounds the count of repeat and the target length of padStart
// and padEnd. Larger requests evaluate to undefined.
const maxBuilt = 1 << 16

func stringPad(r any, a []any, atStart bool) any {
	s := ToString(r)
	target := argInt(a, 0, 0)
	if target > maxBuilt {
		return nil
	}
	pad := " "
	if len(a) > 1 && a[1] != nil {
		pad = ToString(a[1])
	}
	n := len([]rune(s))
	if target <= n || pad == "" {
		return s
	}
	fill := []rune(strings.Repeat(pad, (target-n)/len([]rune(pad))+1))[:target-n]
	if atStart {
		return string(fill) + s
	}
	return s + string(fill)
}

func stringPadStart(_ *Context, r any, a []any) any { return stringPad(r, a, true) }
func stringPadEnd(_ *Context, r any, a []any) any   { return stringPad(r, a, false) }

func stringRepeat(_ *Context, r any, a []any) any {
	n := argInt(a, 0, 0)
	if n < 0 || n > maxBuilt {
		return nil
	}
	return strings.Repeat(ToString(r), n)
}

func stringCharAt(_ *Context, r any, a []any) any {
	s := []rune(ToString(r))
	i := argInt(a, 0, 0)
	if i < 0 || i >= len(s) {
		return ""
	}
	return string(s[i])
}

func mathUnary(f func(float64) float64) method {
	return func(_ *Context, _ any, a []any) any {
		return f(ToNumber(argAt(a, 0)))
	}
}

// numericArgs flattens a single array argument so Math.max(list) works
// alongside Math.max(a, b).
func numericArgs(a []any) []any {
	if len(a) == 1 {
		if arr, ok := a[0].([]any); ok {
			return arr
		}
	}
	return a
}

func mathMin(_ *Context, _ any, a []any) any {
	out := math.Inf(1)
	for _, v := range numericArgs(a) {
		n := ToNumber(v)
		if math.IsNaN(n) {
			return n
		}
		out = math.Min(out, n)
	}
	return out
}

func mathMax(_ *Context, _ any, a []any) any {
	out := math.Inf(-1)
	for _, v := range numericArgs(a) {
		n := ToNumber(v)
		if math.IsNaN(n) {
			return n
		}
		out = math.Max(out, n)
	}
	return out
}

// jsRound rounds half up toward +Inf, matching Math.round.
func jsRound(f float64) float64 {
	return math.Floor(f + 0.5)
}

func jsSign(f float64) float64 {
	switch {
	case math.IsNaN(f):
		return f
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return f
	}
}

// dateArg interprets a Date argument: a number is epoch milliseconds, a
// string is parsed as RFC 3339 or a plain date, nil means now.
func dateArg(c *Context, a []any) (time.Time, bool) {
	switch v := argAt(a, 0).(type) {
	case nil:
		return c.now().UTC(), true
	case float64:
		if math.IsNaN(v) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v)).UTC(), true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func dateParse(c *Context, _ any, a []any) any {
	if argAt(a, 0) == nil {
		return math.NaN()
	}
	t, ok := dateArg(c, a)
	if !ok {
		return math.NaN()
	}
	return float64(t.UnixMilli())
}

func dateISO(c *Context, _ any, a []any) any {
	t, ok := dateArg(c, a)
	if !ok {
		return nil
	}
	return t.Format("2006-01-02T15:04:05.000Z")
}

func dateField(f func(time.Time) int) method {
	return func(c *Context, _ any, a []any) any {
		t, ok := dateArg(c, a)
		if !ok {
			return math.NaN()
		}
		return float64(f(t))
	}
}

func objectKeys(_ *Context, _ any, a []any) any {
	obj, _ := argAt(a, 0).(map[string]any)
	out := []any{}
	for _, k := range ir.SortedKeys(obj) {
		out = append(out, k)
	}
	return out
}

func objectValues(_ *Context, _ any, a []any) any {
	obj, _ := argAt(a, 0).(map[string]any)
	out := []any{}
	for _, k := range ir.SortedKeys(obj) {
		out = append(out, obj[k])
	}
	return out
}

func objectEntries(_ *Context, _ any, a []any) any {
	obj, _ := argAt(a, 0).(map[string]any)
	out := []any{}
	for _, k := range ir.SortedKeys(obj) {
		out = append(out, []any{k, obj[k]})
	}
	return out
}

func objectAssign(_ *Context, _ any, a []any) any {
	out := map[string]any{}
	for _, v := range a {
		if obj, ok := v.(map[string]any); ok {
			for k, val := range obj {
				out[k] = val
			}
		}
	}
	return out
}

func objectFromEntries(_ *Context, _ any, a []any) any {
	out := map[string]any{}
	for _, e := range asArray(argAt(a, 0)) {
		pair, ok := e.([]any)
		if !ok || len(pair) == 0 {
			continue
		}
		out[ToString(pair[0])] = argAt(pair, 1)
	}
	return out
}

func jsonStringify(c *Context, _ any, a []any) any {
	data, err := json.Marshal(stripClosures(argAt(a, 0)))
	if err != nil {
		c.logger().Debug("JSON.stringify failed", "error", err)
		return nil
	}
	return string(data)
}

func jsonParse(_ *Context, _ any, a []any) any {
	v, err := ir.DecodeValue([]byte(argString(a, 0)))
	if err != nil {
		return nil
	}
	return v
}

func stripClosures(v any) any {
	switch val := v.(type) {
	case *Closure:
		return nil
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = stripClosures(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = stripClosures(e)
		}
		return out
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	default:
		return v
	}
}
