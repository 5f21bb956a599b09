package expr

import (
	"math"
	"strings"

	"github.com/roach88/islet/internal/ir"
)

// Closure is the runtime value of a lambda expression. It captures the
// context it was created in.
type Closure struct {
	Params []string
	Body   ir.Expr
	ctx    *Context
}

// Call applies the closure to args. Missing arguments bind to nil.
func (c *Closure) Call(args ...any) any {
	vars := make(map[string]any, len(c.Params))
	for i, p := range c.Params {
		if i < len(args) {
			vars[p] = args[i]
		} else {
			vars[p] = nil
		}
	}
	return Evaluate(c.Body, c.ctx.WithVars(vars))
}

// Evaluate computes the value of e in ctx. It never panics on missing data
// and returns nil for anything it cannot resolve.
func Evaluate(e ir.Expr, ctx *Context) any {
	if e == nil {
		return nil
	}
	if ctx == nil {
		ctx = &Context{}
	}

	switch x := e.(type) {
	case *ir.Lit:
		return x.Value

	case *ir.StateRef:
		return ir.LookupPath(ctx.lookupState(x.Name), x.Path)

	case *ir.LocalRef:
		return ir.LookupPath(ctx.lookupLocal(x.Name), x.Path)

	case *ir.ParamRef:
		return evalParam(x.Name, x.Path, ctx)

	case *ir.ImportRef:
		return ir.LookupPath(ctx.Imports[x.Name], x.Path)

	case *ir.VarRef:
		return ir.LookupPath(ctx.Vars[x.Name], x.Path)

	case *ir.Get:
		if p, ok := x.Base.(*ir.ParamRef); ok {
			return evalParam(p.Name, ir.JoinPath(p.Path, x.Path), ctx)
		}
		return ir.LookupPath(Evaluate(x.Base, ctx), x.Path)

	case *ir.Binary:
		return evalBinary(x, ctx)

	case *ir.Not:
		return !Truthy(Evaluate(x.Operand, ctx))

	case *ir.Cond:
		if Truthy(Evaluate(x.If, ctx)) {
			return Evaluate(x.Then, ctx)
		}
		return Evaluate(x.Else, ctx)

	case *ir.Concat:
		var b strings.Builder
		for _, item := range x.Items {
			b.WriteString(ToString(Evaluate(item, ctx)))
		}
		return b.String()

	case *ir.ArrayLit:
		out := make([]any, len(x.Items))
		for i, item := range x.Items {
			out[i] = Evaluate(item, ctx)
		}
		return out

	case *ir.ObjectLit:
		out := make(map[string]any, len(x.Props))
		for _, p := range x.Props {
			out[p.Key] = Evaluate(p.Value, ctx)
		}
		return out

	case *ir.Call:
		return evalCall(x, ctx)

	case *ir.Lambda:
		return &Closure{Params: x.Params, Body: x.Body, ctx: ctx}

	case *ir.StyleRef:
		return evalStyle(x, ctx)

	case *ir.RouteRef:
		if ctx.Route == nil {
			return nil
		}
		return ir.LookupPath(ctx.Route, x.Path)

	case *ir.DomRef:
		return ctx.Refs[x.Name]

	default:
		ctx.logger().Warn("unsupported expression", "kind", e.Kind())
		return nil
	}
}

// ResolveParam returns the expression a parameter is bound to, with path
// appended. A parameter bound to a reference composes into a single
// reference carrying the combined path, so aliasing is indistinguishable
// from direct access.
func ResolveParam(name, path string, ctx *Context) (ir.Expr, *Context) {
	bound, ok := ctx.Params[name]
	if !ok || bound == nil {
		return nil, nil
	}
	scope := ctx.paramScope
	if scope == nil {
		scope = ctx
	}

	switch ref := bound.(type) {
	case *ir.LocalRef:
		return &ir.LocalRef{Name: ref.Name, Path: ir.JoinPath(ref.Path, path)}, scope
	case *ir.VarRef:
		return &ir.VarRef{Name: ref.Name, Path: ir.JoinPath(ref.Path, path)}, scope
	case *ir.StateRef:
		return &ir.StateRef{Name: ref.Name, Path: ir.JoinPath(ref.Path, path)}, scope
	case *ir.ImportRef:
		return &ir.ImportRef{Name: ref.Name, Path: ir.JoinPath(ref.Path, path)}, scope
	case *ir.ParamRef:
		return ResolveParam(ref.Name, ir.JoinPath(ref.Path, path), scope)
	}
	if path == "" {
		return bound, scope
	}
	return &ir.Get{Base: bound, Path: path}, scope
}

func evalParam(name, path string, ctx *Context) any {
	e, scope := ResolveParam(name, path, ctx)
	if e == nil {
		return nil
	}
	return Evaluate(e, scope)
}

func evalBinary(x *ir.Binary, ctx *Context) any {
	// Logical operators short-circuit and yield an operand, not a bool.
	switch x.Op {
	case "&&":
		l := Evaluate(x.Left, ctx)
		if !Truthy(l) {
			return l
		}
		return Evaluate(x.Right, ctx)
	case "||":
		l := Evaluate(x.Left, ctx)
		if Truthy(l) {
			return l
		}
		return Evaluate(x.Right, ctx)
	case "??":
		l := Evaluate(x.Left, ctx)
		if l != nil {
			return l
		}
		return Evaluate(x.Right, ctx)
	}

	l := Evaluate(x.Left, ctx)
	r := Evaluate(x.Right, ctx)

	switch x.Op {
	case "+":
		if isStringish(l) || isStringish(r) {
			return ToString(l) + ToString(r)
		}
		return ToNumber(l) + ToNumber(r)
	case "-":
		return ToNumber(l) - ToNumber(r)
	case "*":
		return ToNumber(l) * ToNumber(r)
	case "/":
		return ToNumber(l) / ToNumber(r)
	case "%":
		return math.Mod(ToNumber(l), ToNumber(r))
	case "==":
		return LooseEqual(l, r)
	case "!=":
		return !LooseEqual(l, r)
	case "===":
		return StrictEqual(l, r)
	case "!==":
		return !StrictEqual(l, r)
	case "<", "<=", ">", ">=":
		return compare(x.Op, l, r)
	default:
		ctx.logger().Warn("unsupported operator", "op", x.Op)
		return nil
	}
}

// isStringish reports whether + should concatenate: strings, arrays and
// objects all convert to strings first.
func isStringish(v any) bool {
	switch v.(type) {
	case string, []any, map[string]any:
		return true
	default:
		return false
	}
}

// evalStyle resolves a style preset. A preset is either a class string or
// an object with "base" and "variants"; other objects are returned as-is
// (or indexed by variant when one is given).
func evalStyle(x *ir.StyleRef, ctx *Context) any {
	preset, ok := ctx.Styles[x.Name]
	if !ok {
		return nil
	}
	variant := ""
	if x.Variant != nil {
		variant = ToString(Evaluate(x.Variant, ctx))
	}

	switch p := preset.(type) {
	case string:
		return p
	case map[string]any:
		_, hasBase := p["base"]
		variants, hasVariants := p["variants"].(map[string]any)
		if !hasBase && !hasVariants {
			if variant != "" {
				return p[variant]
			}
			return p
		}
		classes := ToString(p["base"])
		if variant != "" && hasVariants {
			if extra := ToString(variants[variant]); extra != "" {
				classes = strings.TrimSpace(classes + " " + extra)
			}
		}
		return classes
	default:
		return preset
	}
}
