package expr

import (
	"log/slog"
	"maps"
	"time"

	"github.com/roach88/islet/internal/ir"
)

// StateReader resolves state names through a scope chain.
//
// Lookup searches innermost scope first and ends at global state.
// LookupLocal searches local scopes only and never reaches global state.
type StateReader interface {
	Lookup(name string) (any, bool)
	LookupLocal(name string) (any, bool)
}

// Context is the read-only bundle an expression is evaluated against.
//
// Contexts are never mutated after construction; the With* methods return
// extended copies so nested scopes and loop bindings compose.
type Context struct {
	State   StateReader
	Vars    map[string]any
	Params  map[string]ir.Expr
	Imports map[string]any
	Styles  map[string]any
	Refs    map[string]any
	Route   map[string]any
	Now     func() time.Time
	Logger  *slog.Logger

	// paramScope is the context parameter expressions are bound in.
	paramScope *Context
}

// NewContext returns a context reading state from s.
func NewContext(s StateReader) *Context {
	return &Context{State: s}
}

func (c *Context) clone() *Context {
	cp := *c
	return &cp
}

// WithVars returns a copy with vars layered over the existing variables.
func (c *Context) WithVars(vars map[string]any) *Context {
	cp := c.clone()
	merged := make(map[string]any, len(c.Vars)+len(vars))
	maps.Copy(merged, c.Vars)
	maps.Copy(merged, vars)
	cp.Vars = merged
	return cp
}

// WithVar is WithVars for a single binding.
func (c *Context) WithVar(name string, value any) *Context {
	return c.WithVars(map[string]any{name: value})
}

// WithState returns a copy reading state from s.
func (c *Context) WithState(s StateReader) *Context {
	cp := c.clone()
	cp.State = s
	return cp
}

// WithParams returns a copy with params bound. The bound expressions are
// evaluated in the receiver's context, not in the returned one.
func (c *Context) WithParams(params map[string]ir.Expr) *Context {
	cp := c.clone()
	cp.Params = params
	cp.paramScope = c
	return cp
}

// WithRoute returns a copy with the current route replaced.
func (c *Context) WithRoute(route map[string]any) *Context {
	cp := c.clone()
	cp.Route = route
	return cp
}

// WithRefs returns a copy with DOM refs replaced.
func (c *Context) WithRefs(refs map[string]any) *Context {
	cp := c.clone()
	cp.Refs = refs
	return cp
}

func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Context) lookupState(name string) any {
	if c.State == nil {
		return nil
	}
	v, _ := c.State.Lookup(name)
	return v
}

func (c *Context) lookupLocal(name string) any {
	if c.State == nil {
		return nil
	}
	v, _ := c.State.LookupLocal(name)
	return v
}

// MapState is a StateReader over a single flat map with no local scopes.
// It is used for tests and for evaluating against a state snapshot.
type MapState map[string]any

func (m MapState) Lookup(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

func (m MapState) LookupLocal(string) (any, bool) { return nil, false }
