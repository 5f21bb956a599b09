package state

import (
	"github.com/roach88/islet/internal/ir"
)

// Scope is one link in a chain of stores. The root scope holds global
// state; every other scope is local and shadows its ancestors.
type Scope struct {
	store   *Store
	parent  *Scope
	local   bool
	actions ir.Actions
	name    string
}

// NewGlobal returns a root scope over store with the program's actions.
func NewGlobal(store *Store, actions ir.Actions) *Scope {
	if store == nil {
		store = NewStore()
	}
	return &Scope{store: store, actions: actions, name: "global"}
}

// NewLocal returns a local scope with its own empty store, chained to
// parent. Sibling scopes never share storage.
func NewLocal(parent *Scope, actions ir.Actions, name string) *Scope {
	return &Scope{store: NewStore(), parent: parent, local: true, actions: actions, name: name}
}

// Store returns the scope's own store.
func (s *Scope) Store() *Store { return s.store }

// Parent returns the enclosing scope, or nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// IsLocal reports whether this is a local scope.
func (s *Scope) IsLocal() bool { return s.local }

// Name identifies the scope in logs.
func (s *Scope) Name() string { return s.name }

// Root returns the global scope of the chain.
func (s *Scope) Root() *Scope {
	sc := s
	for sc.parent != nil {
		sc = sc.parent
	}
	return sc
}

// Owner returns the innermost scope declaring name, or nil.
func (s *Scope) Owner(name string) *Scope {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.store.Has(name) {
			return sc
		}
	}
	return nil
}

// Lookup resolves name innermost first, ending at global state.
func (s *Scope) Lookup(name string) (any, bool) {
	if owner := s.Owner(name); owner != nil {
		return owner.store.Get(name), true
	}
	return nil, false
}

// LookupLocal resolves name through local scopes only.
func (s *Scope) LookupLocal(name string) (any, bool) {
	for sc := s; sc != nil && sc.local; sc = sc.parent {
		if sc.store.Has(name) {
			return sc.store.Get(name), true
		}
	}
	return nil, false
}

// Get is Lookup without the found flag.
func (s *Scope) Get(name string) any {
	v, _ := s.Lookup(name)
	return v
}

// target is the scope a write to name lands in: its owner, else s.
func (s *Scope) target(name string) *Scope {
	if owner := s.Owner(name); owner != nil {
		return owner
	}
	return s
}

// Set writes name in the scope that declares it, or in s when no scope
// does. It reports whether the value changed.
func (s *Scope) Set(name string, value any) bool {
	return s.target(name).store.Set(name, value)
}

// SetPath writes a dotted path inside name in its owning scope.
func (s *Scope) SetPath(name, path string, value any) error {
	return s.target(name).store.SetPath(name, path, value)
}

// Watch subscribes to name in the scope a lookup of name resolves to.
func (s *Scope) Watch(name string, fn Listener) func() {
	return s.target(name).store.Subscribe(name, fn)
}

// Action returns the nearest action called name and the scope that
// defines it: local actions first, then global.
func (s *Scope) Action(name string) (*ir.Action, *Scope) {
	for sc := s; sc != nil; sc = sc.parent {
		if a, ok := sc.actions[name]; ok {
			return a, sc
		}
	}
	return nil, nil
}

// ActionNames lists every action visible from s, innermost first.
func (s *Scope) ActionNames() []string {
	var out []string
	seen := map[string]bool{}
	for sc := s; sc != nil; sc = sc.parent {
		for name := range sc.actions {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// Dispose releases the scope's store and every subscription it holds on
// enclosing scopes. The parent is left untouched.
func (s *Scope) Dispose() {
	s.store.Dispose()
}
