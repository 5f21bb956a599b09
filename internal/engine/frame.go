package engine

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/expr"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/state"
)

// frame is everything one region of the view is rendered with. Frames are
// values; the with* methods return extended copies.
type frame struct {
	app    *App
	scope  *state.Scope
	ctx    *expr.Context
	owner  *owner
	path   string // structural instance key
	island string // enclosing island id, for error reports
}

func (f frame) at(seg string) frame {
	f.path = f.path + "/" + seg
	return f
}

func (f frame) atIndex(i int) frame { return f.at(strconv.Itoa(i)) }

func (f frame) withOwner(o *owner) frame {
	f.owner = o
	return f
}

func (f frame) withScope(sc *state.Scope) frame {
	f.scope = sc
	f.ctx = f.ctx.WithState(sc)
	return f
}

func (f frame) withVars(vars map[string]any) frame {
	f.ctx = f.ctx.WithVars(vars)
	return f
}

// isStatic reports whether e reads nothing that can change after render.
func isStatic(e ir.Expr) bool {
	if e == nil {
		return true
	}
	d := expr.Analyze(e)
	return len(d.Names()) == 0 && !d.Route
}

// effect runs fn now and again whenever state it read (or the route, when e
// reads it) changes, until f's owner is disposed.
func (f frame) effect(e ir.Expr, fn func(ctx *expr.Context)) {
	eff := state.NewEffect(f.scope, func(r expr.StateReader) {
		fn(f.ctx.WithState(r))
	})
	f.owner.onCleanup(eff.Stop)
	if e != nil && expr.Analyze(e).Route {
		f.owner.onCleanup(f.app.signals.Subscribe(signalRoute, func(any) { eff.Run() }))
	}
}

// block is the DOM extent of one rendered view node. The extent of
// conditionals and loops changes over time, so it is computed on demand.
type block interface {
	nodes() []*html.Node
}

type nodeBlock struct{ n *html.Node }

func (b nodeBlock) nodes() []*html.Node { return []*html.Node{b.n} }

type listBlock []block

func (l listBlock) nodes() []*html.Node {
	var out []*html.Node
	for _, b := range l {
		out = append(out, b.nodes()...)
	}
	return out
}

func firstElement(b block) *html.Node {
	for _, n := range b.nodes() {
		if n.Type == html.ElementNode {
			return n
		}
	}
	return nil
}

func detachBlock(b block) {
	if b == nil {
		return
	}
	for _, n := range b.nodes() {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

func appendBlock(parent *html.Node, b block) {
	for _, n := range b.nodes() {
		if n.Parent == nil {
			parent.AppendChild(n)
		}
	}
}

func insertBlockBefore(parent *html.Node, b block, ref *html.Node) {
	for _, n := range b.nodes() {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		parent.InsertBefore(n, ref)
	}
}
