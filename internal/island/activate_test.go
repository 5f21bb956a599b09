package island

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
)

func newIsland(t *testing.T, strategy string, opts ...dom.WindowOption) (*dom.Window, *html.Node) {
	t.Helper()
	doc := dom.MustParseContainer(`<div data-island-id="x" data-island-strategy="` + strategy + `"><button>+</button></div>`)
	el := dom.Find(doc, dom.HasAttr(AttrID))
	require.NotNil(t, el)
	return dom.NewWindow(doc, opts...), el
}

// registrations counts everything a strategy can leave armed on a window.
func registrations(w *dom.Window) map[string]int {
	return map[string]int{
		"idle":      w.IdleCount(),
		"timers":    w.TimerCount(),
		"observers": w.ObserverCount(),
		"listeners": w.ListenerCount(nil),
		"media":     w.MediaListenerCount(),
	}
}

var nothingArmed = map[string]int{"idle": 0, "timers": 0, "observers": 0, "listeners": 0, "media": 0}

func TestActivate_Load(t *testing.T) {
	w, el := newIsland(t, "load")

	n := 0
	cleanup := Activate(w, el, Load, Options{}, func() { n++ })
	assert.Equal(t, 1, n, "load hydrates synchronously")
	assert.Equal(t, nothingArmed, registrations(w))

	cleanup()
	cleanup()
	assert.Equal(t, 1, n)
}

func TestActivate_Idle_SchedulesExactlyOneIdleCallback(t *testing.T) {
	w, el := newIsland(t, "idle")

	n := 0
	cleanup := Activate(w, el, Idle, Options{}, func() { n++ })
	assert.Equal(t, map[string]int{"idle": 1, "timers": 0, "observers": 0, "listeners": 0, "media": 0}, registrations(w))
	assert.Equal(t, 0, n)

	w.RunIdle()
	assert.Equal(t, 1, n)
	w.RunIdle()
	assert.Equal(t, 1, n)

	cleanup()
	cleanup()
	assert.Equal(t, nothingArmed, registrations(w))
}

func TestActivate_Idle_CleanupCancels(t *testing.T) {
	w, el := newIsland(t, "idle")

	n := 0
	cleanup := Activate(w, el, Idle, Options{Timeout: 100 * time.Millisecond}, func() { n++ })
	cleanup()

	w.RunIdle()
	w.Advance(time.Second)
	assert.Equal(t, 0, n)
	assert.Equal(t, nothingArmed, registrations(w))
}

func TestActivate_Idle_Timeout(t *testing.T) {
	w, el := newIsland(t, "idle")

	n := 0
	Activate(w, el, Idle, Options{Timeout: 200 * time.Millisecond}, func() { n++ })

	w.Advance(199 * time.Millisecond)
	assert.Equal(t, 0, n)
	w.Advance(time.Millisecond)
	assert.Equal(t, 1, n)

	w.RunIdle()
	assert.Equal(t, 1, n)
}

func TestActivate_Idle_TimerFallback(t *testing.T) {
	w, el := newIsland(t, "idle", dom.WithoutIdleCallback())

	n := 0
	cleanup := Activate(w, el, Idle, Options{}, func() { n++ })
	assert.Equal(t, map[string]int{"idle": 0, "timers": 1, "observers": 0, "listeners": 0, "media": 0}, registrations(w))

	w.Advance(IdleFallbackDelay)
	assert.Equal(t, 1, n)
	cleanup()
}

func TestActivate_Visible(t *testing.T) {
	w, el := newIsland(t, "visible")

	n := 0
	cleanup := Activate(w, el, Visible, Options{Threshold: 0.5}, func() { n++ })
	assert.Equal(t, 1, w.ObserverCount())

	w.Intersect(el, 0.1)
	assert.Equal(t, 0, n, "below threshold")

	for i := 0; i < 3; i++ {
		w.Intersect(el, 1)
	}
	assert.Equal(t, 1, n, "hydrates at most once")
	assert.Equal(t, 0, w.ObserverCount(), "observer detaches after firing")

	cleanup()
	cleanup()
}

func TestActivate_Visible_CleanupBeforeIntersect(t *testing.T) {
	w, el := newIsland(t, "visible")

	n := 0
	cleanup := Activate(w, el, Visible, Options{}, func() { n++ })
	cleanup()

	w.Intersect(el, 1)
	assert.Equal(t, 0, n)
	assert.Equal(t, nothingArmed, registrations(w))
}

func TestActivate_Interaction(t *testing.T) {
	tests := []struct {
		name string
		fire func(w *dom.Window, el *html.Node)
	}{
		{"click", func(w *dom.Window, el *html.Node) { w.Click(el) }},
		{"focusin", func(w *dom.Window, el *html.Node) { w.FocusIn(el) }},
		{"mouseover", func(w *dom.Window, el *html.Node) { w.Hover(el) }},
		{"bubbled click from child", func(w *dom.Window, el *html.Node) { w.Click(el.FirstChild) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, el := newIsland(t, "interaction")

			n := 0
			cleanup := Activate(w, el, Interaction, Options{}, func() { n++ })
			assert.Equal(t, 3, w.ListenerCount(el))

			tt.fire(w, el)
			tt.fire(w, el)
			w.Click(el)
			assert.Equal(t, 1, n)
			assert.Equal(t, 0, w.ListenerCount(el), "all three listeners removed")

			cleanup()
			cleanup()
		})
	}
}

func TestActivate_Interaction_CleanupBeforeEvent(t *testing.T) {
	w, el := newIsland(t, "interaction")

	n := 0
	cleanup := Activate(w, el, Interaction, Options{}, func() { n++ })
	cleanup()

	w.Click(el)
	w.Hover(el)
	assert.Equal(t, 0, n)
	assert.Equal(t, nothingArmed, registrations(w))
}

func TestActivate_Media(t *testing.T) {
	const query = "(max-width: 600px)"

	t.Run("matches now", func(t *testing.T) {
		w, el := newIsland(t, "media", dom.WithMedia(query, true))

		n := 0
		Activate(w, el, Media, Options{Media: query}, func() { n++ })
		assert.Equal(t, 1, n)
		assert.Equal(t, nothingArmed, registrations(w))
	})

	t.Run("starts matching later", func(t *testing.T) {
		w, el := newIsland(t, "media")

		n := 0
		cleanup := Activate(w, el, Media, Options{Media: query}, func() { n++ })
		assert.Equal(t, 0, n)
		assert.Equal(t, 1, w.MediaListenerCount())

		w.SetMedia(query, true)
		w.SetMedia(query, false)
		w.SetMedia(query, true)
		assert.Equal(t, 1, n)
		assert.Equal(t, 0, w.MediaListenerCount())
		cleanup()
	})

	t.Run("cleanup before match", func(t *testing.T) {
		w, el := newIsland(t, "media")

		n := 0
		cleanup := Activate(w, el, Media, Options{Media: query}, func() { n++ })
		cleanup()
		cleanup()

		w.SetMedia(query, true)
		assert.Equal(t, 0, n)
	})
}

func TestActivate_Never(t *testing.T) {
	w, el := newIsland(t, "never")

	n := 0
	cleanup := Activate(w, el, Never, Options{}, func() { n++ })
	assert.Equal(t, nothingArmed, registrations(w))

	assert.NotPanics(t, func() {
		cleanup()
		cleanup()
		cleanup()
	})
	w.Click(el)
	w.RunIdle()
	w.Advance(time.Second)
	assert.Equal(t, 0, n)
}

func TestPrefetchOnHover_ExactlyOnce(t *testing.T) {
	doc := dom.MustParseContainer(`<a href="/next">next</a>`)
	w := dom.NewWindow(doc)
	a := dom.Find(doc, dom.ByTag("a"))

	n := 0
	cleanup := PrefetchOnHover(w, a, func() { n++ })

	w.Hover(a)
	w.Hover(a)
	w.FocusIn(a)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, w.ListenerCount(nil))

	cleanup()
	cleanup()
}

func TestPrefetchOnVisible_ExactlyOnce(t *testing.T) {
	doc := dom.MustParseContainer(`<a href="/next">next</a>`)
	w := dom.NewWindow(doc)
	a := dom.Find(doc, dom.ByTag("a"))

	n := 0
	cleanup := PrefetchOnVisible(w, a, func() { n++ })

	w.Intersect(a, 0) // leaving the viewport does not count
	w.Intersect(a, 1)
	w.Intersect(a, 1)
	w.Intersect(a, 0.5)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, w.ObserverCount())

	cleanup()
	cleanup()
}

func TestPrefetch_CleanupPreventsPrefetch(t *testing.T) {
	doc := dom.MustParseContainer(`<a href="/next">next</a>`)
	w := dom.NewWindow(doc)
	a := dom.Find(doc, dom.ByTag("a"))

	n := 0
	PrefetchOnHover(w, a, func() { n++ })()
	PrefetchOnVisible(w, a, func() { n++ })()

	w.Hover(a)
	w.Intersect(a, 1)
	assert.Equal(t, 0, n)
}
