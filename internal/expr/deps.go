package expr

import (
	"slices"

	"github.com/roach88/islet/internal/ir"
)

// Deps is the set of names an expression reads, found by static analysis.
type Deps struct {
	State   []string // state references (scope chain)
	Local   []string // local references
	Params  []string
	Imports []string
	Vars    []string
	Route   bool
	Date    bool // reads the clock
}

// External reports whether the value depends on anything other than state:
// import data, the route or the clock. Such values can differ between the
// server render and the client and must be carried across hydration.
func (d Deps) External() bool {
	return len(d.Imports) > 0 || d.Route || d.Date
}

// Names returns state and local references together, deduplicated, in
// first-seen order.
func (d Deps) Names() []string {
	out := make([]string, 0, len(d.State)+len(d.Local))
	for _, n := range append(slices.Clone(d.State), d.Local...) {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// Analyze collects the dependencies of e. Lambda parameters shadow vars of
// the same name inside the lambda body.
func Analyze(e ir.Expr) Deps {
	var d Deps
	collect(e, &d, nil)
	return d
}

func addUnique(list []string, name string) []string {
	if name == "" || slices.Contains(list, name) {
		return list
	}
	return append(list, name)
}

func collect(e ir.Expr, d *Deps, bound []string) {
	switch x := e.(type) {
	case nil, *ir.Lit, *ir.DomRef:
	case *ir.StateRef:
		d.State = addUnique(d.State, x.Name)
	case *ir.LocalRef:
		d.Local = addUnique(d.Local, x.Name)
	case *ir.ParamRef:
		d.Params = addUnique(d.Params, x.Name)
	case *ir.ImportRef:
		d.Imports = addUnique(d.Imports, x.Name)
	case *ir.VarRef:
		if !slices.Contains(bound, x.Name) {
			d.Vars = addUnique(d.Vars, x.Name)
		}
	case *ir.RouteRef:
		d.Route = true
	case *ir.Get:
		collect(x.Base, d, bound)
	case *ir.Binary:
		collect(x.Left, d, bound)
		collect(x.Right, d, bound)
	case *ir.Not:
		collect(x.Operand, d, bound)
	case *ir.Cond:
		collect(x.If, d, bound)
		collect(x.Then, d, bound)
		collect(x.Else, d, bound)
	case *ir.Concat:
		for _, item := range x.Items {
			collect(item, d, bound)
		}
	case *ir.ArrayLit:
		for _, item := range x.Items {
			collect(item, d, bound)
		}
	case *ir.ObjectLit:
		for _, p := range x.Props {
			collect(p.Value, d, bound)
		}
	case *ir.Call:
		if x.Target == TargetDate {
			d.Date = true
		}
		collect(x.Receiver, d, bound)
		for _, a := range x.Args {
			collect(a, d, bound)
		}
	case *ir.Lambda:
		collect(x.Body, d, append(slices.Clone(bound), x.Params...))
	case *ir.StyleRef:
		collect(x.Variant, d, bound)
	}
}
