package island

import (
	"time"

	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
)

// Host is the part of the browser an activation arms triggers on.
// *dom.Window implements it.
type Host interface {
	SetTimeout(fn func(), d time.Duration) int
	ClearTimeout(id int)
	IdleSupported() bool
	RequestIdleCallback(fn func(didTimeout bool), timeout time.Duration) int
	CancelIdleCallback(id int)
	ObserveIntersection(target *html.Node, opts dom.ObserveOptions, fn func(dom.IntersectionEntry)) func()
	AddEventListener(node *html.Node, typ string, fn func(*dom.Event)) func()
	MatchMedia(query string) *dom.MediaQueryList
}

var _ Host = (*dom.Window)(nil)

// interactionEvents trigger an interaction island.
var interactionEvents = []string{"click", "focusin", "mouseover"}

// trigger runs fn at most once and never after cancel. release tears down
// whatever armed it; it runs once, on fire or cancel, whichever is first.
type trigger struct {
	fn       func()
	release  []func()
	fired    bool
	canceled bool
}

func (t *trigger) onRelease(fn func()) { t.release = append(t.release, fn) }

func (t *trigger) fire() {
	if t.fired || t.canceled {
		return
	}
	t.fired = true
	t.releaseAll()
	t.fn()
}

func (t *trigger) cancel() {
	if t.canceled {
		return
	}
	t.canceled = true
	t.releaseAll()
}

func (t *trigger) releaseAll() {
	release := t.release
	t.release = nil
	for _, fn := range release {
		fn()
	}
}

// Activate arms strategy on el and calls hydrate when it fires. Load
// hydrates before Activate returns. Unknown strategies behave like Load.
// The returned cleanup is idempotent.
func Activate(host Host, el *html.Node, strategy Strategy, opts Options, hydrate func()) func() {
	t := &trigger{fn: hydrate}

	switch strategy {
	case Never:
		return func() {}

	case Idle:
		if host.IdleSupported() {
			id := host.RequestIdleCallback(func(bool) { t.fire() }, opts.Timeout)
			t.onRelease(func() { host.CancelIdleCallback(id) })
		} else {
			delay := IdleFallbackDelay
			if opts.Timeout > 0 && opts.Timeout < delay {
				delay = opts.Timeout
			}
			id := host.SetTimeout(t.fire, delay)
			t.onRelease(func() { host.ClearTimeout(id) })
		}

	case Visible:
		disconnect := host.ObserveIntersection(el, dom.ObserveOptions{
			Threshold:  opts.Threshold,
			RootMargin: opts.RootMargin,
		}, func(e dom.IntersectionEntry) {
			if e.IsIntersecting {
				t.fire()
			}
		})
		t.onRelease(disconnect)

	case Interaction:
		for _, typ := range interactionEvents {
			t.onRelease(host.AddEventListener(el, typ, func(*dom.Event) { t.fire() }))
		}

	case Media:
		if opts.Media == "" {
			t.fire()
			break
		}
		mq := host.MatchMedia(opts.Media)
		if mq.Matches() {
			t.fire()
			break
		}
		t.onRelease(mq.OnChange(func(matches bool) {
			if matches {
				t.fire()
			}
		}))

	default:
		t.fire()
	}

	return t.cancel
}

// PrefetchOnHover calls prefetch the first time el is hovered or focused.
func PrefetchOnHover(host Host, el *html.Node, prefetch func()) func() {
	t := &trigger{fn: prefetch}
	for _, typ := range []string{"mouseover", "focusin"} {
		t.onRelease(host.AddEventListener(el, typ, func(*dom.Event) { t.fire() }))
	}
	return t.cancel
}

// PrefetchOnVisible calls prefetch the first time el becomes visible.
func PrefetchOnVisible(host Host, el *html.Node, prefetch func()) func() {
	t := &trigger{fn: prefetch}
	t.onRelease(host.ObserveIntersection(el, dom.ObserveOptions{}, func(e dom.IntersectionEntry) {
		if e.IsIntersecting {
			t.fire()
		}
	}))
	return t.cancel
}
