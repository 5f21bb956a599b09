package state

import (
	"slices"

	"github.com/roach88/islet/internal/expr"
	"github.com/roach88/islet/internal/ir"
)

// InitFields declares and initializes defs in scope.
//
// Every name is reserved first, so a reference to a sibling that is not
// computed yet reads nil instead of falling through to an enclosing scope
// of the same name. Fields are then computed in dependency order (ties and
// cycles broken by declaration order) and each value is recorded before
// the next field is evaluated.
//
// A field present in seed takes the seeded value instead of evaluating its
// initializer. Computed fields always derive.
//
// Within a reference cycle, whichever field is evaluated first reads the
// other as nil.
func InitFields(scope *Scope, defs ir.StateDefs, ctx *expr.Context, seed map[string]any) {
	if len(defs) == 0 {
		return
	}
	if ctx == nil {
		ctx = &expr.Context{}
	}
	store := scope.Store()
	for _, f := range defs {
		store.Reserve(f.Name)
	}

	evalCtx := ctx.WithState(scope)
	for _, i := range InitOrder(defs) {
		f := defs[i]
		if f.Computed != nil {
			store.Computed(f.Name, f.Computed, evalCtx)
			continue
		}
		if v, ok := seed[f.Name]; ok {
			store.Set(f.Name, v)
			continue
		}
		store.Set(f.Name, expr.Evaluate(f.Initial, evalCtx))
	}
}

// InitOrder returns the indexes of defs in initialization order: a field
// comes after the fields of the same scope its initializer references.
// Among ready fields the earliest declared goes first; when only cyclic
// fields remain, the earliest declared is taken regardless.
func InitOrder(defs ir.StateDefs) []int {
	index := make(map[string]int, len(defs))
	for i, f := range defs {
		index[f.Name] = i
	}

	deps := make([][]int, len(defs))
	for i, f := range defs {
		for _, name := range fieldDeps(f) {
			if j, ok := index[name]; ok && j != i {
				deps[i] = append(deps[i], j)
			}
		}
	}

	done := make([]bool, len(defs))
	ready := func(i int) bool {
		return !slices.ContainsFunc(deps[i], func(j int) bool { return !done[j] })
	}

	order := make([]int, 0, len(defs))
	for len(order) < len(defs) {
		next := -1
		for i := range defs {
			if !done[i] && ready(i) {
				next = i
				break
			}
		}
		if next == -1 {
			next = firstCyclic(deps, done)
		}
		done[next] = true
		order = append(order, next)
	}
	return order
}

// firstCyclic returns the earliest pending field that lies on a cycle of
// pending fields. One always exists when no pending field is ready.
func firstCyclic(deps [][]int, done []bool) int {
	for i := range deps {
		if !done[i] && reaches(deps, done, i, i, make([]bool, len(deps))) {
			return i
		}
	}
	for i, d := range done {
		if !d {
			return i
		}
	}
	return -1
}

func reaches(deps [][]int, done []bool, from, target int, seen []bool) bool {
	for _, j := range deps[from] {
		if done[j] {
			continue
		}
		if j == target {
			return true
		}
		if !seen[j] {
			seen[j] = true
			if reaches(deps, done, j, target, seen) {
				return true
			}
		}
	}
	return false
}

// fieldDeps lists the state and local names a field's initializer or
// derivation reads.
func fieldDeps(f ir.StateField) []string {
	var names []string
	for _, e := range []ir.Expr{f.Initial, f.Computed} {
		if e != nil {
			names = append(names, expr.Analyze(e).Names()...)
		}
	}
	return names
}
