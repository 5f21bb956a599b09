package engine

import (
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/island"
	"github.com/roach88/islet/internal/state"
)

// IslandInstance is an island that has been rendered or hydrated.
type IslandInstance struct {
	ID         string
	InstanceID string
	Strategy   island.Strategy
	Element    *html.Node
}

// Islands returns the live island instances in hydration order.
func (a *App) Islands() []IslandInstance {
	out := make([]IslandInstance, len(a.islands))
	copy(out, a.islands)
	return out
}

// HydrateIslands leaves container static and hydrates each top-level
// island element when its strategy fires. Islands nested in another
// island hydrate as part of the outer one.
func HydrateIslands(program *ir.Program, container *html.Node, opts ...Option) (*App, error) {
	a, err := newApp(program, container, opts)
	if err != nil {
		return nil, err
	}

	defs := make(map[string]*ir.Island)
	for _, x := range program.Islands() {
		if _, ok := defs[x.ID]; !ok {
			defs[x.ID] = x
		}
	}

	descs, err := island.Scan(container)
	if err != nil {
		a.report(&RuntimeError{Code: ErrCodeHydrationMismatch, Message: "malformed island markers", Err: err}, "")
	}

	seen := make(map[string]int)
	for _, d := range descs {
		if insideIsland(d.Element, container) {
			continue
		}
		x, ok := defs[d.ID]
		if !ok {
			a.report(NewHydrationMismatchError("island "+strconv.Quote(d.ID), "no such island in program"), d.ID)
			continue
		}
		key := "island:" + d.ID + "#" + strconv.Itoa(seen[d.ID])
		seen[d.ID]++

		a.root.onCleanup(island.Activate(a.window, d.Element, d.Strategy, d.Options, func() {
			a.guard("hydrate island "+d.ID, func() { a.hydrateIsland(x, d, key) })
		}))
		a.logger.Debug("island scheduled", "island", d.ID, "strategy", d.Strategy)
	}

	a.mount()
	return a, nil
}

// HydrateAppWithIslands hydrates the islands of container and returns a
// function that tears all of them down.
func HydrateAppWithIslands(program *ir.Program, container *html.Node, opts ...Option) (func(), error) {
	a, err := HydrateIslands(program, container, opts...)
	if err != nil {
		return nil, fmt.Errorf("hydrate islands: %w", err)
	}
	return a.Destroy, nil
}

// insideIsland reports whether an ancestor of el below root is an island.
func insideIsland(el, root *html.Node) bool {
	for p := el.Parent; p != nil && p != root; p = p.Parent {
		if _, ok := dom.GetAttr(p, island.AttrID); ok {
			return true
		}
	}
	return false
}

// islandScope creates or reuses the scope of one island instance. The
// scope chains to global state, never to the scope the island sits in.
func (a *App) islandScope(x *ir.Island, key string, o *owner, seed map[string]any) *state.Scope {
	sc, existed := a.arena.get(key, func() *state.Scope {
		return state.NewLocal(a.global, x.Actions, key)
	})
	if !existed {
		state.InitFields(sc, x.State, a.ctx, seed)
	}
	o.onCleanup(func() { a.arena.release(key, sc) })
	return sc
}

func (a *App) islandFrame(x *ir.Island, sc *state.Scope, o *owner, key string) frame {
	return frame{app: a, scope: sc, ctx: a.ctx.WithState(sc), owner: o, path: key, island: x.ID}
}

func (a *App) hydrateIsland(x *ir.Island, d island.Descriptor, key string) {
	if a.destroyed {
		return
	}
	o := a.root.child()
	sc := a.islandScope(x, key, o, d.State)
	a.islandFrame(x, sc, o, key).render(x.Content, newCursor(d.Element))
	a.markHydrated(x, d.Strategy, d.Element)
}

func (a *App) markHydrated(x *ir.Island, strategy island.Strategy, el *html.Node) {
	if !a.ssr {
		dom.SetAttr(el, island.AttrHydrated, "")
	}
	a.islands = append(a.islands, IslandInstance{
		ID:         x.ID,
		InstanceID: a.ids.Generate(),
		Strategy:   strategy,
		Element:    el,
	})
	a.logger.Debug("island hydrated", "island", x.ID, "strategy", strategy)
}

// islandNode renders an island inline, as part of a full render or a full
// hydration.
func (f frame) islandNode(x *ir.Island, cur *cursor) *html.Node {
	a := f.app
	key := f.path + "/island:" + x.ID
	strategy, err := island.ParseStrategy(x.Strategy)
	if err != nil {
		a.logger.Warn("invalid island strategy", "island", x.ID, "error", err)
		strategy = island.Load
	}

	if cur != nil {
		cur.skipWhitespace()
		if el := cur.next; el != nil && el.Type == html.ElementNode && dom.AttrOr(el, island.AttrID, "") == x.ID {
			cur.take()
			var seed map[string]any
			if raw, ok := dom.GetAttr(el, island.AttrState); ok {
				seed, _ = decodeObject(raw)
			}
			sc := a.islandScope(x, key, f.owner, seed)
			a.islandFrame(x, sc, f.owner, key).render(x.Content, cur.child(el))
			a.markHydrated(x, strategy, el)
			return el
		}
		a.report(NewHydrationMismatchError("island "+strconv.Quote(x.ID), describe(cur.next)), x.ID)
	}

	el := dom.NewElement("div")
	dom.SetAttr(el, island.AttrID, x.ID)
	dom.SetAttr(el, island.AttrStrategy, string(strategy))
	if len(x.Options) > 0 {
		if data, err := ir.MarshalCanonical(x.Options); err == nil {
			dom.SetAttr(el, island.AttrOptions, string(data))
		}
	}

	sc := a.islandScope(x, key, f.owner, nil)
	appendBlock(el, a.islandFrame(x, sc, f.owner, key).render(x.Content, nil))

	if seed := islandSeed(x.State, sc); len(seed) > 0 {
		if data, err := ir.MarshalCanonical(seed); err == nil {
			dom.SetAttr(el, island.AttrState, string(data))
		}
	}
	if cur != nil {
		cur.insert(el)
	}
	a.markHydrated(x, strategy, el)
	return el
}

// islandSeed collects the plain fields of an island for its state
// attribute. Computed fields are derived again on the client.
func islandSeed(defs ir.StateDefs, sc *state.Scope) map[string]any {
	out := make(map[string]any, len(defs))
	for _, fd := range defs {
		if fd.Computed == nil {
			out[fd.Name] = sc.Store().Get(fd.Name)
		}
	}
	return out
}

// portalTarget resolves a portal selector in the app's document, falling
// back to the container.
func (a *App) portalTarget(selector string) *html.Node {
	if t := dom.Select(documentOf(a.container), selector); t != nil {
		return t
	}
	return a.container
}

// claimPortalContent returns the first content marker in target not yet
// claimed by another portal.
func (a *App) claimPortalContent(target *html.Node) *html.Node {
	for c := target.FirstChild; c != nil; c = c.NextSibling {
		if dom.IsComment(c, portalContent) && !a.claimed[c] {
			a.claimed[c] = true
			return c
		}
	}
	return nil
}

func decodeObject(raw string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode %q: %w", raw, err)
	}
	return ir.Normalize(m).(map[string]any), nil
}

