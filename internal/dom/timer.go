package dom

import "time"

type timer struct {
	id  int
	due time.Duration // elapsed time at which it fires
	seq int64
	fn  func()
}

// SetTimeout schedules fn after d of virtual time and returns its id.
// Non-positive delays fire on the next Flush.
func (w *Window) SetTimeout(fn func(), d time.Duration) int {
	if w.closed || fn == nil {
		return 0
	}
	if d < 0 {
		d = 0
	}
	id := w.newID()
	w.timers[id] = &timer{
		id:  id,
		due: w.clock.Elapsed() + d,
		seq: w.clock.Next(),
		fn:  fn,
	}
	return id
}

// ClearTimeout cancels a pending timer. Unknown ids are ignored.
func (w *Window) ClearTimeout(id int) {
	delete(w.timers, id)
}

// TimerCount returns the number of pending timers.
func (w *Window) TimerCount() int { return len(w.timers) }

// nextDue returns the earliest timer due at or before limit.
func (w *Window) nextDue(limit time.Duration) *timer {
	var next *timer
	for _, t := range w.timers {
		if t.due > limit {
			continue
		}
		if next == nil || t.due < next.due || (t.due == next.due && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (w *Window) fire(t *timer) {
	delete(w.timers, t.id)
	w.runTask("timer", t.fn)
}
