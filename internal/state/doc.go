// Package state implements the reactive state store and local state scopes.
//
// A Store owns a set of named cells with per-key and per-path
// subscriptions and memoized computed cells. A Scope chains stores so that
// local state shadows enclosing state of the same name: lookups walk from
// the innermost scope to the global one, writes go to the scope that
// declares the name.
//
// Nothing in this package is safe for concurrent use. Stores are owned by
// the single event loop goroutine that renders and dispatches actions.
package state
