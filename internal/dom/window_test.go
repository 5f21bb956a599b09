package dom

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimers_FireInDueOrder(t *testing.T) {
	w := NewWindow(nil)

	var got []string
	w.SetTimeout(func() { got = append(got, "b") }, 20*time.Millisecond)
	w.SetTimeout(func() { got = append(got, "a") }, 10*time.Millisecond)
	w.SetTimeout(func() { got = append(got, "c") }, 20*time.Millisecond)
	assert.Equal(t, 3, w.TimerCount())

	w.Advance(15 * time.Millisecond)
	assert.Equal(t, []string{"a"}, got)

	w.Advance(5 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got, "same due time fires in registration order")
	assert.Equal(t, 0, w.TimerCount())
	assert.Equal(t, DefaultEpoch.Add(20*time.Millisecond), w.Now())
}

func TestTimers_SeeTheirOwnDueTime(t *testing.T) {
	w := NewWindow(nil)

	var at time.Duration
	w.SetTimeout(func() { at = w.Clock().Elapsed() }, 7*time.Millisecond)
	w.Advance(time.Second)

	assert.Equal(t, 7*time.Millisecond, at)
	assert.Equal(t, time.Second, w.Clock().Elapsed())
}

func TestTimers_NestedTimerWithinWindowFires(t *testing.T) {
	w := NewWindow(nil)

	fired := 0
	w.SetTimeout(func() {
		w.SetTimeout(func() { fired++ }, 5*time.Millisecond)
	}, 5*time.Millisecond)

	w.Advance(10 * time.Millisecond)
	assert.Equal(t, 1, fired)
}

func TestTimers_ClearTimeout(t *testing.T) {
	w := NewWindow(nil)

	fired := false
	id := w.SetTimeout(func() { fired = true }, 0)
	w.ClearTimeout(id)
	w.ClearTimeout(id)
	w.ClearTimeout(999)

	w.Flush()
	assert.False(t, fired)
}

func TestFlush_ZeroDelayTimer(t *testing.T) {
	w := NewWindow(nil)

	fired := false
	w.SetTimeout(func() { fired = true }, 0)
	assert.False(t, fired, "timers never fire synchronously")

	w.Flush()
	assert.True(t, fired)
}

func TestMicrotasks_RunBeforeNextTask(t *testing.T) {
	w := NewWindow(nil)

	var got []string
	w.Post(func() {
		got = append(got, "task1")
		w.QueueMicrotask(func() {
			got = append(got, "micro1")
			w.QueueMicrotask(func() { got = append(got, "micro2") })
		})
	})
	w.Post(func() { got = append(got, "task2") })

	assert.Equal(t, 2, w.Flush())
	assert.Equal(t, []string{"task1", "micro1", "micro2", "task2"}, got)
}

func TestRun_RecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	w := NewWindow(nil, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	after := false
	w.Post(func() { panic("boom") })
	w.Post(func() { after = true })

	assert.NotPanics(t, func() { w.Flush() })
	assert.True(t, after)
	assert.Contains(t, buf.String(), "uncaught error in callback")
	assert.Contains(t, buf.String(), "boom")
}

func TestEvents_Bubble(t *testing.T) {
	doc := MustParseContainer(`<div id="outer"><button id="btn">go</button></div>`)
	w := NewWindow(doc)
	outer, btn := ByID(doc, "outer"), ByID(doc, "btn")

	var got []string
	w.AddEventListener(btn, "click", func(e *Event) {
		got = append(got, "btn")
		assert.Equal(t, btn, e.CurrentTarget)
	})
	w.AddEventListener(outer, "click", func(e *Event) {
		got = append(got, "outer")
		assert.Equal(t, btn, e.Target)
	})
	w.AddEventListener(outer, "input", func(*Event) { got = append(got, "wrong type") })

	w.Click(btn)
	assert.Equal(t, []string{"btn", "outer"}, got)
}

func TestEvents_StopPropagation(t *testing.T) {
	doc := MustParseContainer(`<div id="outer"><button id="btn">go</button></div>`)
	w := NewWindow(doc)

	outerHit := false
	w.AddEventListener(ByID(doc, "btn"), "click", func(e *Event) { e.StopPropagation() })
	w.AddEventListener(ByID(doc, "outer"), "click", func(*Event) { outerHit = true })

	w.Click(ByID(doc, "btn"))
	assert.False(t, outerHit)
}

func TestEvents_RemoveIsIdempotent(t *testing.T) {
	doc := MustParseContainer(`<button id="btn"></button>`)
	w := NewWindow(doc)
	btn := ByID(doc, "btn")

	n := 0
	remove := w.AddEventListener(btn, "click", func(*Event) { n++ })
	other := w.AddEventListener(btn, "click", func(*Event) {})
	assert.Equal(t, 2, w.ListenerCount(btn))

	remove()
	remove()
	assert.Equal(t, 1, w.ListenerCount(nil))

	w.Click(btn)
	assert.Equal(t, 0, n)

	other()
	assert.Equal(t, 0, w.ListenerCount(nil))
}

func TestEvents_RemovedDuringDispatchIsSkipped(t *testing.T) {
	doc := MustParseContainer(`<button id="btn"></button>`)
	w := NewWindow(doc)
	btn := ByID(doc, "btn")

	second := 0
	var removeSecond func()
	w.AddEventListener(btn, "click", func(*Event) { removeSecond() })
	removeSecond = w.AddEventListener(btn, "click", func(*Event) { second++ })

	w.Click(btn)
	assert.Equal(t, 0, second)
}

func TestEvents_Input(t *testing.T) {
	doc := MustParseContainer(`<input id="in">`)
	w := NewWindow(doc)
	in := ByID(doc, "in")

	var value string
	w.AddEventListener(in, "input", func(e *Event) { value = e.Value })

	w.Input(in, "hello")
	assert.Equal(t, "hello", value)
	assert.Equal(t, "hello", AttrOr(in, "value", ""))
}

func TestIdle_RunAndCancel(t *testing.T) {
	w := NewWindow(nil)
	require.True(t, w.IdleSupported())

	var got []string
	w.RequestIdleCallback(func(timedOut bool) {
		assert.False(t, timedOut)
		got = append(got, "a")
	}, 0)
	id := w.RequestIdleCallback(func(bool) { got = append(got, "b") }, 0)
	assert.Equal(t, 2, w.IdleCount())

	w.CancelIdleCallback(id)
	assert.Equal(t, 1, w.RunIdle())
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, 0, w.IdleCount())
}

func TestIdle_TimeoutFiresOnce(t *testing.T) {
	w := NewWindow(nil)

	calls := 0
	timedOut := false
	w.RequestIdleCallback(func(to bool) {
		calls++
		timedOut = to
	}, 50*time.Millisecond)
	assert.Equal(t, 1, w.TimerCount())

	w.Advance(50 * time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.True(t, timedOut)

	assert.Equal(t, 0, w.RunIdle())
	assert.Equal(t, 1, calls)
}

func TestIdle_RunClearsTimeout(t *testing.T) {
	w := NewWindow(nil)

	calls := 0
	w.RequestIdleCallback(func(bool) { calls++ }, 50*time.Millisecond)
	w.RunIdle()
	assert.Equal(t, 0, w.TimerCount())

	w.Advance(time.Second)
	assert.Equal(t, 1, calls)
}

func TestIdle_Unsupported(t *testing.T) {
	w := NewWindow(nil, WithoutIdleCallback())

	assert.False(t, w.IdleSupported())
	assert.Equal(t, 0, w.RequestIdleCallback(func(bool) {}, 0))
	assert.Equal(t, 0, w.IdleCount())
}

func TestIntersection_Threshold(t *testing.T) {
	doc := MustParseContainer(`<div id="t"></div><div id="other"></div>`)
	w := NewWindow(doc)
	target := ByID(doc, "t")

	var entries []IntersectionEntry
	disconnect := w.ObserveIntersection(target, ObserveOptions{Threshold: 0.5}, func(e IntersectionEntry) {
		entries = append(entries, e)
	})
	assert.Equal(t, 1, w.ObserverCount())

	assert.Equal(t, 0, w.Intersect(ByID(doc, "other"), 1))
	assert.Equal(t, 0, w.Intersect(target, 0.25))
	assert.Equal(t, 1, w.Intersect(target, 0.75))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsIntersecting)
	assert.Equal(t, 0.75, entries[0].IntersectionRatio)

	disconnect()
	disconnect()
	assert.Equal(t, 0, w.ObserverCount())
	assert.Equal(t, 0, w.Intersect(target, 1))
}

func TestMedia_ChangeNotifiesOnFlip(t *testing.T) {
	w := NewWindow(nil, WithMedia("(min-width: 800px)", true))

	mq := w.MatchMedia("(min-width: 800px)")
	assert.True(t, mq.Matches())
	assert.False(t, w.MatchMedia("print").Matches())

	var got []bool
	remove := mq.OnChange(func(m bool) { got = append(got, m) })
	assert.Equal(t, 1, w.MediaListenerCount())

	w.SetMedia("(min-width: 800px)", true) // no change
	w.SetMedia("(min-width: 800px)", false)
	w.SetMedia("print", true)
	assert.Equal(t, []bool{false}, got)

	remove()
	remove()
	w.SetMedia("(min-width: 800px)", true)
	assert.Equal(t, []bool{false}, got)
	assert.Equal(t, 0, w.MediaListenerCount())
}

func TestLocation(t *testing.T) {
	w := NewWindow(nil, WithLocation("/start"))

	w.SetLocation("/a")
	w.SetLocation("/b")
	assert.Equal(t, "/b", w.Location())
	assert.Equal(t, []string{"/start", "/a"}, w.History())
}

func TestClose_DropsEverything(t *testing.T) {
	doc := MustParseContainer(`<button id="btn"></button>`)
	w := NewWindow(doc)
	btn := ByID(doc, "btn")

	fired := false
	w.SetTimeout(func() { fired = true }, 0)
	w.AddEventListener(btn, "click", func(*Event) { fired = true })
	w.RequestIdleCallback(func(bool) { fired = true }, 0)

	w.Close()
	w.Close()
	assert.True(t, w.Closed())

	w.Click(btn)
	w.Advance(time.Second)
	w.RunIdle()
	assert.False(t, w.Post(func() { fired = true }))
	assert.False(t, fired)
	assert.Equal(t, 0, w.ListenerCount(nil))
}
