package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/island"
	. "github.com/roach88/islet/internal/testutil"
)

func counterIsland(strategy string) *ir.Island {
	return &ir.Island{
		ID:       "counter",
		Strategy: strategy,
		State:    Fields("count", 0),
		Actions:  Actions(Action("increment", Increment("count"))),
		Content: El("div", nil,
			El("button", Props("onClick", On("click", "increment")), StaticText("+")),
			El("span", Props("id", "count-display"), Text(State("count"))),
		),
	}
}

// hydrateIslands renders p on the server and hydrates its islands on a
// fresh window.
func hydrateIslands(t *testing.T, p *ir.Program, wopts ...dom.WindowOption) (*App, *html.Node, *dom.Window) {
	t.Helper()
	container := dom.MustParseContainer(renderSSR(t, p))
	w := dom.NewWindow(container, wopts...)
	a, err := HydrateIslands(p, container, testOptions(WithWindow(w))...)
	require.NoError(t, err)
	t.Cleanup(a.Destroy)
	return a, container, w
}

func TestIslands_CounterEndToEnd(t *testing.T) {
	p := newProgram(El("div", nil, counterIsland("load"), counterIsland("load")))
	a, container, w := hydrateIslands(t, p)

	buttons := dom.FindAll(container, dom.ByTag("button"))
	spans := dom.FindAll(container, byAttr("id", "count-display"))
	require.Len(t, buttons, 2)
	require.Len(t, spans, 2)
	assert.Equal(t, "0", dom.TextContent(spans[0]))

	for _, want := range []string{"1", "2", "3"} {
		w.Click(buttons[0])
		assert.Equal(t, want, dom.TextContent(spans[0]))
	}
	assert.Equal(t, "0", dom.TextContent(spans[1]))
	assert.Empty(t, a.Errors())
	assert.Len(t, a.Islands(), 2)
}

func TestIslands_StateSeedsFromMarkup(t *testing.T) {
	p := newProgram(counterIsland("load"))
	container := dom.MustParseContainer(`<div data-island-id="counter" data-island-state="{&#34;count&#34;:7}">` +
		`<div><button>+</button><span id="count-display">7</span></div></div>`)

	a, err := HydrateIslands(p, container, testOptions()...)
	require.NoError(t, err)
	defer a.Destroy()

	a.Window().Click(mustFind(t, container, dom.ByTag("button")))
	assert.Equal(t, "8", dom.TextContent(mustFind(t, container, byAttr("id", "count-display"))))
}

func TestIslands_IdleSchedulesOneCallback(t *testing.T) {
	p := newProgram(counterIsland("idle"))
	a, container, w := hydrateIslands(t, p)

	el := mustFind(t, container, byAttr(island.AttrID, "counter"))
	assert.Equal(t, 1, w.IdleCount())
	assert.Empty(t, a.Islands())
	assert.False(t, dom.HasAttr(island.AttrHydrated)(el))

	assert.Equal(t, 1, w.RunIdle())
	assert.Equal(t, 0, w.IdleCount())
	assert.True(t, dom.HasAttr(island.AttrHydrated)(el))
	assert.Len(t, a.Islands(), 1)
}

func TestIslands_IdleFallsBackToTimer(t *testing.T) {
	p := newProgram(counterIsland("idle"))
	a, _, w := hydrateIslands(t, p, dom.WithoutIdleCallback())

	assert.Equal(t, 0, w.IdleCount())
	assert.Equal(t, 1, w.TimerCount())
	w.Advance(island.IdleFallbackDelay)
	assert.Len(t, a.Islands(), 1)
}

func TestIslands_NeverRegistersNothing(t *testing.T) {
	p := newProgram(counterIsland("never"))
	a, _, w := hydrateIslands(t, p)

	assert.Equal(t, 0, w.IdleCount())
	assert.Equal(t, 0, w.TimerCount())
	assert.Equal(t, 0, w.ObserverCount())
	assert.Equal(t, 0, w.ListenerCount(nil))
	assert.Equal(t, 0, w.MediaListenerCount())
	assert.Empty(t, a.Islands())
}

func TestIslands_VisibleHydratesOnIntersection(t *testing.T) {
	p := newProgram(counterIsland("visible"))
	a, container, w := hydrateIslands(t, p)
	button := mustFind(t, container, dom.ByTag("button"))
	span := mustFind(t, container, byAttr("id", "count-display"))

	w.Click(button)
	assert.Equal(t, "0", dom.TextContent(span))
	assert.Equal(t, 1, w.ObserverCount())

	w.Intersect(mustFind(t, container, byAttr(island.AttrID, "counter")), 1)
	assert.Equal(t, 0, w.ObserverCount())
	w.Click(button)
	assert.Equal(t, "1", dom.TextContent(span))
	assert.Len(t, a.Islands(), 1)
}

func TestIslands_InteractionHydratesOnFirstEvent(t *testing.T) {
	p := newProgram(counterIsland("interaction"))
	a, container, w := hydrateIslands(t, p)
	el := mustFind(t, container, byAttr(island.AttrID, "counter"))

	assert.Equal(t, 3, w.ListenerCount(el))
	w.Hover(el)
	assert.Equal(t, 0, w.ListenerCount(el))
	assert.Len(t, a.Islands(), 1)
}

func TestIslands_DestroyBeforeTriggerCancels(t *testing.T) {
	p := newProgram(counterIsland("idle"))
	a, _, w := hydrateIslands(t, p)

	a.Destroy()
	assert.Equal(t, 0, w.IdleCount())
	assert.Equal(t, 0, w.RunIdle())
	assert.Empty(t, a.Islands())
}

func TestIslands_DestroyReleasesEverything(t *testing.T) {
	p := newProgram(El("div", nil, counterIsland("load"), counterIsland("visible")))
	a, _, w := hydrateIslands(t, p)
	require.Positive(t, w.ListenerCount(nil))

	a.Destroy()
	assert.Equal(t, 0, w.ListenerCount(nil))
	assert.Equal(t, 0, w.ObserverCount())
	assert.Equal(t, 0, a.arena.len())
}

func TestIslands_UnknownIslandIsReported(t *testing.T) {
	p := newProgram(El("div", nil))
	container := dom.MustParseContainer(`<div data-island-id="ghost"></div>`)
	a, err := HydrateIslands(p, container, testOptions()...)
	require.NoError(t, err)
	defer a.Destroy()

	assert.Equal(t, []RuntimeErrorCode{ErrCodeHydrationMismatch}, errorCodes(a))
}

func TestHydrateAppWithIslands_ReturnsTeardown(t *testing.T) {
	p := newProgram(counterIsland("load"))
	p.State = Fields("bye", 0)
	container := dom.MustParseContainer(renderSSR(t, p))
	w := dom.NewWindow(container)

	destroy, err := HydrateAppWithIslands(p, container, testOptions(WithWindow(w))...)
	require.NoError(t, err)
	require.Positive(t, w.ListenerCount(nil))

	destroy()
	destroy()
	assert.Equal(t, 0, w.ListenerCount(nil))
}

func TestHydrateAppWithIslands_NilProgram(t *testing.T) {
	_, err := HydrateAppWithIslands(nil, dom.NewContainer())
	assert.ErrorIs(t, err, ErrNilProgram)
}
