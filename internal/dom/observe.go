package dom

import (
	"time"

	"golang.org/x/net/html"
)

type idleRequest struct {
	id      int
	fn      func(didTimeout bool)
	timerID int
}

// IdleSupported reports whether requestIdleCallback is available.
func (w *Window) IdleSupported() bool { return w.idleSupported }

// RequestIdleCallback queues fn for the next idle period. A positive
// timeout also arms a timer that runs fn with didTimeout set if no idle
// period came first. It returns 0 when idle callbacks are unsupported.
func (w *Window) RequestIdleCallback(fn func(didTimeout bool), timeout time.Duration) int {
	if w.closed || !w.idleSupported || fn == nil {
		return 0
	}
	req := &idleRequest{id: w.newID(), fn: fn}
	if timeout > 0 {
		req.timerID = w.SetTimeout(func() {
			if w.removeIdle(req.id) {
				fn(true)
			}
		}, timeout)
	}
	w.idle = append(w.idle, req)
	return req.id
}

// CancelIdleCallback cancels a pending idle callback and its timeout.
func (w *Window) CancelIdleCallback(id int) {
	for _, req := range w.idle {
		if req.id == id {
			w.ClearTimeout(req.timerID)
			break
		}
	}
	w.removeIdle(id)
}

func (w *Window) removeIdle(id int) bool {
	for i, req := range w.idle {
		if req.id == id {
			w.idle = append(w.idle[:i], w.idle[i+1:]...)
			return true
		}
	}
	return false
}

// IdleCount returns the number of pending idle callbacks.
func (w *Window) IdleCount() int { return len(w.idle) }

// RunIdle simulates an idle period: every idle callback pending at the
// start runs once. Callbacks requested during the period wait for the next.
func (w *Window) RunIdle() int {
	pending := w.idle
	w.idle = nil
	for _, req := range pending {
		w.ClearTimeout(req.timerID)
		fn := req.fn
		w.runTask("idle", func() { fn(false) })
	}
	w.Flush()
	return len(pending)
}

// IntersectionEntry describes one intersection change.
type IntersectionEntry struct {
	Target            *html.Node
	IntersectionRatio float64
	IsIntersecting    bool
}

// ObserveOptions configure an intersection observation.
type ObserveOptions struct {
	Threshold  float64
	RootMargin string
}

type observation struct {
	target *html.Node
	opts   ObserveOptions
	fn     func(IntersectionEntry)
	active bool
}

// ObserveIntersection watches target and returns a disconnect function.
// fn runs when a reported intersection crosses the threshold.
func (w *Window) ObserveIntersection(target *html.Node, opts ObserveOptions, fn func(IntersectionEntry)) func() {
	if w.closed || target == nil || fn == nil {
		return func() {}
	}
	o := &observation{target: target, opts: opts, fn: fn, active: true}
	w.observers = append(w.observers, o)
	return func() {
		if !o.active {
			return
		}
		o.active = false
		for i, cand := range w.observers {
			if cand == o {
				w.observers = append(w.observers[:i], w.observers[i+1:]...)
				break
			}
		}
	}
}

// ObserverCount returns the number of active intersection observations.
func (w *Window) ObserverCount() int { return len(w.observers) }

// Intersect reports that target now intersects the viewport by ratio
// (0 means it left). Observers whose threshold is met are notified.
func (w *Window) Intersect(target *html.Node, ratio float64) int {
	entry := IntersectionEntry{
		Target:            target,
		IntersectionRatio: ratio,
		IsIntersecting:    ratio > 0,
	}
	var due []*observation
	for _, o := range w.observers {
		if o.target == target {
			due = append(due, o)
		}
	}
	n := 0
	for _, o := range due {
		if !o.active {
			continue
		}
		if entry.IsIntersecting && ratio < o.opts.Threshold {
			continue
		}
		fn := o.fn
		w.runTask("intersection", func() { fn(entry) })
		n++
	}
	return n
}

type mediaListener struct {
	query  string
	fn     func(matches bool)
	active bool
}

// MediaQueryList is the result of MatchMedia.
type MediaQueryList struct {
	w     *Window
	query string
}

// MatchMedia returns the query's current state and change subscription.
func (w *Window) MatchMedia(query string) *MediaQueryList {
	return &MediaQueryList{w: w, query: query}
}

// Media returns the query string.
func (m *MediaQueryList) Media() string { return m.query }

// Matches reports whether the query currently matches.
func (m *MediaQueryList) Matches() bool { return m.w.media[m.query] }

// OnChange registers fn for match changes and returns a remover.
func (m *MediaQueryList) OnChange(fn func(matches bool)) func() {
	w := m.w
	if w.closed || fn == nil {
		return func() {}
	}
	l := &mediaListener{query: m.query, fn: fn, active: true}
	w.mediaListeners = append(w.mediaListeners, l)
	return func() {
		if !l.active {
			return
		}
		l.active = false
		for i, cand := range w.mediaListeners {
			if cand == l {
				w.mediaListeners = append(w.mediaListeners[:i], w.mediaListeners[i+1:]...)
				break
			}
		}
	}
}

// MediaListenerCount returns the number of registered media listeners.
func (w *Window) MediaListenerCount() int { return len(w.mediaListeners) }

// SetMedia changes the result of query, notifying listeners when it flips.
func (w *Window) SetMedia(query string, matches bool) {
	if w.media[query] == matches {
		return
	}
	w.media[query] = matches
	snapshot := append([]*mediaListener(nil), w.mediaListeners...)
	for _, l := range snapshot {
		if !l.active || l.query != query {
			continue
		}
		fn := l.fn
		w.runTask("media", func() { fn(matches) })
	}
}
