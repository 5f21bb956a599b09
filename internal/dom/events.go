package dom

import "golang.org/x/net/html"

// Event is a DOM event in flight.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	// Value carries the new value for input and change events.
	Value string

	stopped          bool
	defaultPrevented bool
}

// StopPropagation prevents the event from reaching ancestors.
func (e *Event) StopPropagation() { e.stopped = true }

// PreventDefault marks the default action as cancelled.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

type listener struct {
	typ    string
	fn     func(*Event)
	active bool
}

// AddEventListener registers fn for events of typ on node and returns a
// function that removes it. The remover is idempotent.
func (w *Window) AddEventListener(node *html.Node, typ string, fn func(*Event)) func() {
	if w.closed || node == nil || fn == nil {
		return func() {}
	}
	l := &listener{typ: typ, fn: fn, active: true}
	w.listeners[node] = append(w.listeners[node], l)
	return func() {
		if !l.active {
			return
		}
		l.active = false
		list := w.listeners[node]
		for i, cand := range list {
			if cand == l {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(w.listeners, node)
		} else {
			w.listeners[node] = list
		}
	}
}

// ListenerCount returns the number of listeners registered on node, or
// across the whole window when node is nil.
func (w *Window) ListenerCount(node *html.Node) int {
	if node != nil {
		return len(w.listeners[node])
	}
	n := 0
	for _, list := range w.listeners {
		n += len(list)
	}
	return n
}

// Dispatch fires ev at its target and bubbles it through the ancestors,
// then runs the microtask checkpoint. Listeners added during dispatch do
// not see the current event; listeners removed during dispatch are skipped.
func (w *Window) Dispatch(ev *Event) {
	if w.closed || ev == nil || ev.Target == nil {
		return
	}
	for node := ev.Target; node != nil && !ev.stopped; node = node.Parent {
		list := w.listeners[node]
		if len(list) == 0 {
			continue
		}
		snapshot := append([]*listener(nil), list...)
		ev.CurrentTarget = node
		for _, l := range snapshot {
			if !l.active || l.typ != ev.Type {
				continue
			}
			w.run("event:"+ev.Type, func() { l.fn(ev) })
		}
	}
	ev.CurrentTarget = nil
	w.drainMicrotasks()
}

// Fire dispatches a new event of typ at target.
func (w *Window) Fire(target *html.Node, typ string) *Event {
	ev := &Event{Type: typ, Target: target}
	w.Dispatch(ev)
	return ev
}

// Click dispatches a click at target.
func (w *Window) Click(target *html.Node) *Event { return w.Fire(target, "click") }

// FocusIn dispatches a focusin at target.
func (w *Window) FocusIn(target *html.Node) *Event { return w.Fire(target, "focusin") }

// Hover dispatches a mouseover at target.
func (w *Window) Hover(target *html.Node) *Event { return w.Fire(target, "mouseover") }

// Input sets the value attribute of target and dispatches an input event
// carrying it.
func (w *Window) Input(target *html.Node, value string) *Event {
	if target == nil {
		return nil
	}
	SetAttr(target, "value", value)
	ev := &Event{Type: "input", Target: target, Value: value}
	w.Dispatch(ev)
	return ev
}
