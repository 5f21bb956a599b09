package state

import (
	"slices"

	"github.com/roach88/islet/internal/expr"
	"github.com/roach88/islet/internal/ir"
)

// Watcher is a state reader that can also subscribe to the cells it
// resolves. Scope and Store both implement it.
type Watcher interface {
	expr.StateReader
	Watch(name string, fn Listener) func()
}

type computedCell struct {
	derive ir.Expr
	ctx    *expr.Context
	reader Watcher
	dirty  bool
	deps   []string
	unsubs []func()
}

func (c *computedCell) release() {
	for _, u := range c.unsubs {
		u()
	}
	c.unsubs = nil
}

// tracker records the names an evaluation reads.
type tracker struct {
	expr.StateReader
	names []string
}

func (t *tracker) Lookup(name string) (any, bool) {
	t.record(name)
	return t.StateReader.Lookup(name)
}

func (t *tracker) LookupLocal(name string) (any, bool) {
	t.record(name)
	return t.StateReader.LookupLocal(name)
}

func (t *tracker) record(name string) {
	if !slices.Contains(t.names, name) {
		t.names = append(t.names, name)
	}
}

// Computed declares key as a memoized derivation of e. The value is
// computed now; afterwards it is recomputed only when a cell it read
// changes, eagerly if key has subscribers and lazily on the next Get
// otherwise. Dependencies are re-collected on each recomputation.
//
// ctx.State is the reader the derivation resolves names through; when it
// is nil or cannot subscribe, the store itself is used.
func (s *Store) Computed(key string, e ir.Expr, ctx *expr.Context) {
	if ctx == nil {
		ctx = &expr.Context{}
	}
	reader, ok := ctx.State.(Watcher)
	if !ok {
		reader = s
	}
	if old, exists := s.computed[key]; exists {
		old.release()
	}
	if !s.Has(key) {
		s.order = append(s.order, key)
		s.values[key] = nil
	}
	cell := &computedCell{derive: e, ctx: ctx, reader: reader}
	s.computed[key] = cell
	s.recompute(key, cell)
}

// IsComputed reports whether key is a computed cell.
func (s *Store) IsComputed(key string) bool {
	_, ok := s.computed[key]
	return ok
}

// Deps returns the names the computed cell key read on its last
// computation.
func (s *Store) Deps(key string) []string {
	if cell, ok := s.computed[key]; ok {
		return slices.Clone(cell.deps)
	}
	return nil
}

func (s *Store) recompute(key string, cell *computedCell) {
	cell.release()

	t := &tracker{StateReader: cell.reader}
	value := ir.Normalize(expr.Evaluate(cell.derive, cell.ctx.WithState(t)))
	s.values[key] = value
	cell.dirty = false
	cell.deps = t.names

	if s.disposed {
		return
	}
	for _, name := range t.names {
		if name == key {
			continue
		}
		cell.unsubs = append(cell.unsubs, cell.reader.Watch(name, func(any) {
			s.invalidate(key, cell)
		}))
	}
}

func (s *Store) invalidate(key string, cell *computedCell) {
	if s.computed[key] != cell || s.disposed {
		return
	}
	cell.dirty = true
	if len(s.subs[key]) == 0 {
		return
	}
	old := s.values[key]
	s.recompute(key, cell)
	if value := s.values[key]; !expr.Equal(old, value) {
		s.notify(key, old, value)
	}
}
