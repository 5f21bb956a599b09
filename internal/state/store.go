package state

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/islet/internal/expr"
	"github.com/roach88/islet/internal/ir"
)

// ErrPathConflict is returned by SetPath when a segment cannot be written
// without changing a container's type.
var ErrPathConflict = errors.New("path conflicts with container type")

// ErrIndexOutOfRange is returned by SetPath when an array index would pad
// the array by more than MaxArrayPadding holes.
var ErrIndexOutOfRange = errors.New("array index out of range")

// MaxArrayPadding bounds the holes SetPath fills with nil when writing
// past the end of an array.
const MaxArrayPadding = 1024

// Listener receives the new value of a key or sub-path.
type Listener func(value any)

type subscription struct {
	fn     Listener
	path   []string // nil for whole-key subscriptions
	active bool
}

// Store is a mapping from key to value with subscriptions and computed
// cells.
type Store struct {
	values   map[string]any
	order    []string
	subs     map[string][]*subscription
	computed map[string]*computedCell
	disposed bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		values:   make(map[string]any),
		subs:     make(map[string][]*subscription),
		computed: make(map[string]*computedCell),
	}
}

// Has reports whether key is declared in this store, even if its value is
// nil.
func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns declared keys in declaration order.
func (s *Store) Keys() []string {
	return slices.Clone(s.order)
}

// Get returns the value of key, recomputing a stale computed cell first.
func (s *Store) Get(key string) any {
	if cell, ok := s.computed[key]; ok && cell.dirty {
		s.recompute(key, cell)
	}
	return s.values[key]
}

// GetPath reads a dotted path inside the value of key.
func (s *Store) GetPath(key, path string) any {
	return ir.LookupPath(s.Get(key), path)
}

// Lookup implements expr.StateReader for a store used on its own.
func (s *Store) Lookup(name string) (any, bool) {
	if !s.Has(name) {
		return nil, false
	}
	return s.Get(name), true
}

// LookupLocal implements expr.StateReader. A bare store has no local
// scopes.
func (s *Store) LookupLocal(string) (any, bool) { return nil, false }

// Watch implements Watcher by subscribing to key.
func (s *Store) Watch(key string, fn Listener) func() {
	return s.Subscribe(key, fn)
}

// Reserve declares key with a nil value without notifying anyone. It is
// a no-op for keys already declared.
func (s *Store) Reserve(key string) {
	if s.Has(key) {
		return
	}
	s.values[key] = nil
	s.order = append(s.order, key)
}

// Set stores value under key and notifies subscribers when the value
// changed. Computed keys are read-only and Set reports false for them.
func (s *Store) Set(key string, value any) bool {
	if _, ok := s.computed[key]; ok {
		return false
	}
	value = ir.Normalize(value)
	old, existed := s.values[key]
	if !existed {
		s.order = append(s.order, key)
	}
	s.values[key] = value
	if existed && expr.Equal(old, value) {
		return false
	}
	s.notify(key, old, value)
	return true
}

// SetPath writes value at a dotted path inside key. Containers along the
// path are copied, never mutated in place, and keep their type: a numeric
// segment on an array indexes it, a non-numeric segment on an array is a
// conflict. Missing containers are created as arrays for numeric segments
// and objects otherwise. An index more than MaxArrayPadding past the end
// of an array fails with ErrIndexOutOfRange.
func (s *Store) SetPath(key, path string, value any) error {
	segments := ir.SplitPath(path)
	if len(segments) == 0 {
		s.Set(key, value)
		return nil
	}
	updated, err := setIn(s.Get(key), segments, ir.Normalize(value))
	if err != nil {
		return fmt.Errorf("set %s.%s: %w", key, path, err)
	}
	s.Set(key, updated)
	return nil
}

func setIn(container any, segments []string, value any) (any, error) {
	if len(segments) == 0 {
		return value, nil
	}
	seg, rest := segments[0], segments[1:]

	switch c := container.(type) {
	case []any:
		idx, ok := ir.ArrayIndex(seg)
		if !ok {
			return nil, fmt.Errorf("%w: segment %q on array", ErrPathConflict, seg)
		}
		if idx-len(c) > MaxArrayPadding {
			return nil, fmt.Errorf("%w: index %d on array of %d", ErrIndexOutOfRange, idx, len(c))
		}
		out := slices.Clone(c)
		for len(out) <= idx {
			out = append(out, nil)
		}
		child, err := setIn(out[idx], rest, value)
		if err != nil {
			return nil, err
		}
		out[idx] = child
		return out, nil

	case map[string]any:
		out := make(map[string]any, len(c)+1)
		for k, v := range c {
			out[k] = v
		}
		child, err := setIn(c[seg], rest, value)
		if err != nil {
			return nil, err
		}
		out[seg] = child
		return out, nil

	case nil:
		if idx, ok := ir.ArrayIndex(seg); ok {
			if idx > MaxArrayPadding {
				return nil, fmt.Errorf("%w: index %d on new array", ErrIndexOutOfRange, idx)
			}
			out := make([]any, idx+1)
			child, err := setIn(nil, rest, value)
			if err != nil {
				return nil, err
			}
			out[idx] = child
			return out, nil
		}
		child, err := setIn(nil, rest, value)
		if err != nil {
			return nil, err
		}
		return map[string]any{seg: child}, nil

	default:
		return nil, fmt.Errorf("%w: segment %q on %T", ErrPathConflict, seg, container)
	}
}

// Subscribe registers fn for changes to key. The returned function
// unsubscribes and is safe to call more than once.
func (s *Store) Subscribe(key string, fn Listener) func() {
	return s.subscribe(key, nil, fn)
}

// SubscribeToPath registers fn for changes to a sub-path of key. fn is
// called only when the value at that path changes, not for sibling paths.
func (s *Store) SubscribeToPath(key, path string, fn Listener) func() {
	segments := ir.SplitPath(path)
	if segments == nil {
		segments = []string{}
	}
	return s.subscribe(key, segments, fn)
}

func (s *Store) subscribe(key string, path []string, fn Listener) func() {
	if s.disposed {
		return func() {}
	}
	sub := &subscription{fn: fn, path: path, active: true}
	s.subs[key] = append(s.subs[key], sub)
	return func() {
		if !sub.active {
			return
		}
		sub.active = false
		s.subs[key] = slices.DeleteFunc(s.subs[key], func(x *subscription) bool { return x == sub })
		if len(s.subs[key]) == 0 {
			delete(s.subs, key)
		}
	}
}

// SubscriberCount returns the number of live subscriptions on key.
func (s *Store) SubscriberCount(key string) int {
	return len(s.subs[key])
}

func (s *Store) notify(key string, old, value any) {
	for _, sub := range slices.Clone(s.subs[key]) {
		if !sub.active {
			continue
		}
		if sub.path == nil {
			sub.fn(value)
			continue
		}
		prev, next := ir.Lookup(old, sub.path), ir.Lookup(value, sub.path)
		if !expr.Equal(prev, next) {
			sub.fn(next)
		}
	}
}

// Snapshot returns a copy of every declared value, computed cells
// included.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(s.order))
	for _, k := range s.order {
		out[k] = ir.Clone(s.Get(k))
	}
	return out
}

// Dispose releases every subscription held by or on this store, including
// the dependency subscriptions computed cells hold on enclosing scopes.
// It is idempotent.
func (s *Store) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	for _, cell := range s.computed {
		cell.release()
	}
	for _, subs := range s.subs {
		for _, sub := range subs {
			sub.active = false
		}
	}
	clear(s.subs)
}

// Disposed reports whether Dispose has been called.
func (s *Store) Disposed() bool {
	return s.disposed
}
