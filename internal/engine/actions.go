package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/expr"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/state"
)

// maxCallDepth bounds nested call steps.
const maxCallDepth = 64

// execution identifies the action a step list runs for.
type execution struct {
	action string
	island string
	depth  int
}

// dispatch runs the action name visible from scope from. Steps run in the
// scope that defines the action, with payload bound as var payload.
func (a *App) dispatch(from *state.Scope, name string, payload any, ctx *expr.Context, islandID string) {
	a.call(from, name, payload, ctx, execution{action: name, island: islandID})
}

func (a *App) call(from *state.Scope, name string, payload any, ctx *expr.Context, ex execution) {
	if a.destroyed {
		return
	}
	act, sc := from.Action(name)
	if act == nil {
		a.report(NewUnknownActionError(name, suggest(name, from.ActionNames())), ex.island)
		return
	}
	if ex.depth >= maxCallDepth {
		a.report(&RuntimeError{
			Code:    ErrCodeLifecycleHook,
			Message: fmt.Sprintf("call depth exceeds %d", maxCallDepth),
			Action:  name,
		}, ex.island)
		return
	}
	ex.action = name
	a.logger.Debug("dispatch", "action", name, "island", ex.island)
	a.steps(act.Steps, sc, ctx.WithState(sc).WithVar("payload", payload), ex)
}

// suggest returns the candidate closest to name, or "" when none is close.
func suggest(name string, candidates []string) string {
	best, bestDist := "", math.MaxInt
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(name, c)
		if d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}
	if best == "" || bestDist > max(2, len(name)/3) {
		return ""
	}
	return best
}

func (a *App) steps(steps []ir.Step, sc *state.Scope, ctx *expr.Context, ex execution) {
	for _, s := range steps {
		if a.destroyed {
			return
		}
		a.step(s, sc, ctx, ex)
	}
}

func (a *App) step(s ir.Step, sc *state.Scope, ctx *expr.Context, ex execution) {
	switch x := s.(type) {
	case *ir.SetStep:
		sc.Set(x.Target, ir.Clone(expr.Evaluate(x.Value, ctx)))
	case *ir.UpdateStep:
		a.update(x, sc, ctx)
	case *ir.SetPathStep:
		path := pathString(expr.Evaluate(x.Path, ctx))
		if err := sc.SetPath(x.Target, path, ir.Clone(expr.Evaluate(x.Value, ctx))); err != nil {
			a.logger.Warn("setPath failed", "target", x.Target, "path", path, "error", err)
		}
	case *ir.CallStep:
		var payload any
		if x.Payload != nil {
			payload = expr.Evaluate(x.Payload, ctx)
		}
		next := ex
		next.depth++
		a.call(sc, x.Action, payload, ctx, next)
	case *ir.FetchStep:
		a.fetch(x, sc, ctx, ex)
	case *ir.StorageStep:
		a.storage(x, sc, ctx, ex)
	case *ir.NavigateStep:
		a.Navigate(expr.ToString(expr.Evaluate(x.To, ctx)))
	default:
		a.logger.Warn("unsupported step", "kind", s.Kind(), "action", ex.action)
	}
}

// pathString accepts a dotted string or an array of segments.
func pathString(v any) string {
	if segs, ok := v.([]any); ok {
		parts := make([]string, len(segs))
		for i, s := range segs {
			parts[i] = expr.ToString(s)
		}
		return strings.Join(parts, ".")
	}
	return expr.ToString(v)
}

func (a *App) update(x *ir.UpdateStep, sc *state.Scope, ctx *expr.Context) {
	current := sc.Get(x.Target)
	var operand any
	if x.Value != nil {
		operand = expr.Evaluate(x.Value, ctx)
	}

	var next any
	switch x.Op {
	case ir.OpIncrement, ir.OpDecrement:
		n := 0.0
		if current != nil {
			n = expr.ToNumber(current)
		}
		by := 1.0
		if x.Value != nil {
			by = expr.ToNumber(operand)
		}
		if x.Op == ir.OpDecrement {
			by = -by
		}
		next = n + by
	case ir.OpToggle:
		next = !expr.Truthy(current)
	case ir.OpPush:
		list, _ := current.([]any)
		next = append(append(make([]any, 0, len(list)+1), list...), ir.Clone(operand))
	case ir.OpPop:
		list, _ := current.([]any)
		if len(list) == 0 {
			return
		}
		next = append([]any(nil), list[:len(list)-1]...)
	case ir.OpRemove:
		list, _ := current.([]any)
		out := make([]any, 0, len(list))
		closure, isClosure := operand.(*expr.Closure)
		for _, item := range list {
			if (isClosure && expr.Truthy(closure.Call(item))) || (!isClosure && expr.Equal(item, operand)) {
				continue
			}
			out = append(out, item)
		}
		next = out
	case ir.OpMerge:
		merged := map[string]any{}
		if obj, ok := current.(map[string]any); ok {
			for k, v := range obj {
				merged[k] = v
			}
		}
		if obj, ok := operand.(map[string]any); ok {
			for k, v := range obj {
				merged[k] = ir.Clone(v)
			}
		}
		next = merged
	case ir.OpClear:
		next = emptyLike(current)
	default:
		a.logger.Warn("unknown update op", "op", x.Op, "target", x.Target)
		return
	}
	sc.Set(x.Target, next)
}

// emptyLike returns the empty value of v's type.
func emptyLike(v any) any {
	switch v.(type) {
	case []any:
		return []any{}
	case map[string]any:
		return map[string]any{}
	case string:
		return ""
	case float64:
		return 0.0
	case bool:
		return false
	default:
		return nil
	}
}

// fetch starts the request; the continuation runs as a window task. A
// failure goes to onError with var error bound, or is reported.
func (a *App) fetch(x *ir.FetchStep, sc *state.Scope, ctx *expr.Context, ex execution) {
	req := &dom.Request{
		Method: strings.ToUpper(x.Method),
		URL:    expr.ToString(expr.Evaluate(x.URL, ctx)),
	}
	if req.Method == "" {
		req.Method = "GET"
	}
	if x.Body != nil {
		body, err := ir.MarshalCanonical(expr.Evaluate(x.Body, ctx))
		if err != nil {
			a.failed(x.OnError, sc, ctx, ex, "fetch", fmt.Errorf("encode body: %w", err))
			return
		}
		req.Body = body
		req.Header = map[string]string{"Content-Type": "application/json"}
	}

	a.window.Fetch(req, func(resp *dom.Response, err error) {
		if a.destroyed {
			return
		}
		if err != nil {
			a.failed(x.OnError, sc, ctx, ex, "fetch", err)
			return
		}
		result := decodeResult(resp.Body)
		if x.Result != "" {
			sc.Set(x.Result, result)
		}
		a.steps(x.OnSuccess, sc, ctx.WithVar("result", result), ex)
	})
}

// decodeResult parses a JSON body, falling back to the raw text.
func decodeResult(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return ir.Normalize(v)
	}
	return string(body)
}

func (a *App) storage(x *ir.StorageStep, sc *state.Scope, ctx *expr.Context, ex execution) {
	key := expr.ToString(expr.Evaluate(x.Key, ctx))
	store := a.window.Storage()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		switch x.Op {
		case ir.StorageGet:
			raw, ok, err := store.GetItem(key)
			if err != nil {
				return err
			}
			var v any
			if ok {
				if jerr := json.Unmarshal([]byte(raw), &v); jerr != nil {
					v = raw
				}
				v = ir.Normalize(v)
			}
			if x.Result != "" {
				sc.Set(x.Result, v)
			}
			return nil
		case ir.StorageSet:
			data, err := ir.MarshalCanonical(expr.Evaluate(x.Value, ctx))
			if err != nil {
				return err
			}
			return store.SetItem(key, string(data))
		case ir.StorageRemove:
			return store.RemoveItem(key)
		default:
			return fmt.Errorf("unknown storage op %q", x.Op)
		}
	}()
	if err != nil {
		a.failed(x.OnError, sc, ctx, ex, "storage "+x.Op, err)
	}
}

// failed routes an external failure to onError, or reports it.
func (a *App) failed(onError []ir.Step, sc *state.Scope, ctx *expr.Context, ex execution, step string, err error) {
	if len(onError) > 0 {
		a.steps(onError, sc, ctx.WithVar("error", err.Error()), ex)
		return
	}
	a.report(NewExternalCallError(ex.action, step, err), ex.island)
}
