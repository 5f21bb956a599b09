package state

import (
	"slices"

	"github.com/roach88/islet/internal/expr"
)

// Effect runs a function that reads state and runs it again whenever a
// cell it read last time changes. Dependencies are re-collected on every
// run, so a branch not taken is not watched.
//
// A change that arrives while the effect is running is queued and applied
// once the current run finishes.
type Effect struct {
	reader  Watcher
	fn      func(expr.StateReader)
	unsubs  []func()
	deps    []string
	running bool
	pending bool
	stopped bool
}

// NewEffect creates an effect over reader and runs it once.
func NewEffect(reader Watcher, fn func(r expr.StateReader)) *Effect {
	e := &Effect{reader: reader, fn: fn}
	e.Run()
	return e
}

// Run re-runs the effect now.
func (e *Effect) Run() {
	if e.stopped {
		return
	}
	if e.running {
		e.pending = true
		return
	}
	e.running = true
	defer func() { e.running = false }()

	for {
		e.pending = false
		e.release()

		t := &tracker{StateReader: e.reader}
		e.fn(t)
		if e.stopped {
			return
		}
		e.deps = t.names
		for _, name := range t.names {
			e.unsubs = append(e.unsubs, e.reader.Watch(name, func(any) { e.Run() }))
		}
		if !e.pending {
			return
		}
	}
}

// Deps returns the names read on the last run.
func (e *Effect) Deps() []string { return slices.Clone(e.deps) }

// Stop releases every subscription. The effect never runs again.
// Stop is idempotent.
func (e *Effect) Stop() {
	if e.stopped {
		return
	}
	e.stopped = true
	e.release()
}

// Stopped reports whether Stop has been called.
func (e *Effect) Stopped() bool { return e.stopped }

func (e *Effect) release() {
	for _, u := range e.unsubs {
		u()
	}
	e.unsubs = nil
}
