package testutil

import (
	"github.com/roach88/islet/internal/ir"
)

// Shorthand constructors for building programs in tests. Each mirrors one
// wire variant; optional fields are left zero.

func Lit(v any) ir.Expr                { return &ir.Lit{Value: ir.Normalize(v)} }
func State(name string) ir.Expr        { return &ir.StateRef{Name: name} }
func StatePath(name, p string) ir.Expr { return &ir.StateRef{Name: name, Path: p} }
func Local(name string) ir.Expr        { return &ir.LocalRef{Name: name} }
func Var(name string) ir.Expr          { return &ir.VarRef{Name: name} }
func VarPath(name, p string) ir.Expr   { return &ir.VarRef{Name: name, Path: p} }
func Import(name string) ir.Expr       { return &ir.ImportRef{Name: name} }
func Param(name string) ir.Expr        { return &ir.ParamRef{Name: name} }

func Bin(op string, l, r ir.Expr) ir.Expr { return &ir.Binary{Op: op, Left: l, Right: r} }

func Cond(c, then, els ir.Expr) ir.Expr { return &ir.Cond{If: c, Then: then, Else: els} }

func Concat(items ...ir.Expr) ir.Expr { return &ir.Concat{Items: items} }

// Text is a text node over e.
func Text(e ir.Expr) ir.Node { return &ir.Text{Value: e} }

// StaticText is a text node with a literal string.
func StaticText(s string) ir.Node { return &ir.Text{Value: &ir.Lit{Value: s}} }

// El builds an element. Props are given as alternating name/value pairs
// where each value is an ir.Expr or an *ir.EventHandler.
func El(tag string, props []any, children ...ir.Node) *ir.Element {
	el := &ir.Element{Tag: tag, Children: children}
	for i := 0; i+1 < len(props); i += 2 {
		name, _ := props[i].(string)
		switch v := props[i+1].(type) {
		case *ir.EventHandler:
			el.Props = append(el.Props, ir.Prop{Name: name, Handler: v})
		case ir.Expr:
			el.Props = append(el.Props, ir.Prop{Name: name, Value: v})
		default:
			el.Props = append(el.Props, ir.Prop{Name: name, Value: Lit(v)})
		}
	}
	return el
}

// Props collects alternating name/value pairs for El.
func Props(kv ...any) []any { return kv }

// On builds a handler for event dispatching action.
func On(event, action string) *ir.EventHandler {
	return &ir.EventHandler{Event: event, Action: action}
}

// Fields builds ordered state defs from alternating name/initial pairs.
func Fields(kv ...any) ir.StateDefs {
	var defs ir.StateDefs
	for i := 0; i+1 < len(kv); i += 2 {
		name, _ := kv[i].(string)
		init, ok := kv[i+1].(ir.Expr)
		if !ok {
			init = Lit(kv[i+1])
		}
		defs = append(defs, ir.StateField{Name: name, Initial: init})
	}
	return defs
}

// Action builds a named action.
func Action(name string, steps ...ir.Step) *ir.Action {
	return &ir.Action{Name: name, Steps: steps}
}

// Actions collects actions by name.
func Actions(as ...*ir.Action) ir.Actions {
	out := make(ir.Actions, len(as))
	for _, a := range as {
		out[a.Name] = a
	}
	return out
}

// Increment is an update step adding one to target.
func Increment(target string) ir.Step {
	return &ir.UpdateStep{Target: target, Op: ir.OpIncrement}
}

// Set is a set step.
func Set(target string, value ir.Expr) ir.Step {
	return &ir.SetStep{Target: target, Value: value}
}
