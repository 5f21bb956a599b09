package engine

import (
	"github.com/roach88/islet/internal/state"
)

// arena holds local scopes by instance key. An instance key names a
// logical component instance (its structural path plus enclosing loop
// keys), so a scope survives its DOM nodes being rebuilt.
type arena struct {
	scopes map[string]*state.Scope
	// keep suppresses release while a region is rebuilt in place.
	keep int
}

func newArena() *arena {
	return &arena{scopes: make(map[string]*state.Scope)}
}

// get returns the scope for key and whether it already existed.
func (a *arena) get(key string, create func() *state.Scope) (*state.Scope, bool) {
	if sc, ok := a.scopes[key]; ok && !sc.Store().Disposed() {
		return sc, true
	}
	sc := create()
	a.scopes[key] = sc
	return sc, false
}

// release disposes and forgets the scope for key unless a rebuild is in
// progress.
func (a *arena) release(key string, sc *state.Scope) {
	if a.keep > 0 {
		return
	}
	if a.scopes[key] == sc {
		delete(a.scopes, key)
	}
	sc.Dispose()
}

// retain runs fn with releases suppressed.
func (a *arena) retain(fn func()) {
	a.keep++
	defer func() { a.keep-- }()
	fn()
}

func (a *arena) len() int { return len(a.scopes) }

func (a *arena) disposeAll() {
	for key, sc := range a.scopes {
		sc.Dispose()
		delete(a.scopes, key)
	}
}
