package engine

import (
	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/expr"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/state"
)

// Marker comment data.
const (
	ifMarkerPrefix = "if:"
	eachStart      = "each"
	eachEnd        = "/each"
	portalMarker   = "portal"
	portalContent  = "portal-content"
	slotPrefix     = "slot:"

	// AttrLocalState carries the server values of local fields whose
	// initializers depend on import data, the route or the clock.
	AttrLocalState = "data-local-state"
)

// render produces the block for n. With a nil cursor it creates new nodes
// and leaves placing them to the caller; with a cursor it claims the
// server nodes at the cursor, inserting fresh nodes before it wherever the
// markup does not match.
func (f frame) render(n ir.Node, cur *cursor) block {
	switch x := n.(type) {
	case nil:
		return listBlock(nil)
	case *ir.Element:
		return nodeBlock{f.element(x, cur)}
	case *ir.Text:
		return nodeBlock{f.text(x, cur)}
	case *ir.If:
		return f.conditional(x, cur)
	case *ir.Each:
		return f.each(x, cur)
	case *ir.Local:
		return f.local(x, cur)
	case *ir.Island:
		return nodeBlock{f.islandNode(x, cur)}
	case *ir.Markdown:
		return nodeBlock{f.static(cur, "markdown", func() (*html.Node, error) { return renderMarkdown(x.Content) })}
	case *ir.Code:
		return nodeBlock{f.static(cur, "code", func() (*html.Node, error) { return renderCode(x.Language, x.Content) })}
	case *ir.Portal:
		return nodeBlock{f.portal(x, cur)}
	case *ir.Slot:
		return nodeBlock{f.slot(x, cur)}
	default:
		f.app.logger.Warn("unsupported view node", "kind", n.Kind())
		return listBlock(nil)
	}
}

func (f frame) children(parent *html.Node, nodes []ir.Node, cur *cursor) {
	for i, c := range nodes {
		b := f.atIndex(i).render(c, cur)
		if cur == nil {
			appendBlock(parent, b)
		}
	}
}

func (f frame) element(x *ir.Element, cur *cursor) *html.Node {
	if cur != nil {
		if el := cur.takeElement(x.Tag); el != nil {
			f.props(el, x)
			inner := cur.child(el)
			f.children(el, x.Children, inner)
			f.dropStaleText(inner)
			return el
		}
		f.app.report(NewHydrationMismatchError("<"+x.Tag+">", describe(cur.next)), f.island)
	}

	el := dom.NewElement(x.Tag)
	f.props(el, x)
	f.children(el, x.Children, nil)
	if cur != nil {
		cur.insert(el)
	}
	return el
}

// dropStaleText removes server text left after the last child the view
// claimed, such as text the client renders as "". Portal content at the
// end of the element is left alone.
func (f frame) dropStaleText(cur *cursor) {
	for n := cur.next; n != nil; {
		next := n.NextSibling
		switch {
		case dom.IsComment(n, portalContent):
			return
		case n.Type == html.TextNode && !dom.IsWhitespaceText(n):
			f.app.report(NewHydrationMismatchError("end of <"+cur.parent.Data+">", describe(n)), f.island)
			dom.Detach(n)
		}
		n = next
	}
}

func (f frame) text(x *ir.Text, cur *cursor) *html.Node {
	value := expr.ToString(expr.Evaluate(x.Value, f.ctx))

	var n *html.Node
	if cur != nil {
		n = cur.takeText(value)
	}
	if n == nil {
		n = dom.NewText(value)
		if cur != nil {
			cur.insert(n)
		}
	}
	n.Data = value

	if !isStatic(x.Value) {
		f.effect(x.Value, func(ctx *expr.Context) {
			if v := expr.ToString(expr.Evaluate(x.Value, ctx)); n.Data != v {
				n.Data = v
			}
		})
	}
	return n
}

// ifBlock is a branch marker followed by the live branch.
type ifBlock struct {
	marker *html.Node
	branch block
}

func (b *ifBlock) nodes() []*html.Node {
	out := []*html.Node{b.marker}
	if b.branch != nil {
		out = append(out, b.branch.nodes()...)
	}
	return out
}

func branchName(x *ir.If, ctx *expr.Context) string {
	switch {
	case expr.Truthy(expr.Evaluate(x.If, ctx)):
		return "then"
	case x.Else != nil:
		return "else"
	default:
		return "none"
	}
}

func branchNode(x *ir.If, name string) ir.Node {
	switch name {
	case "then":
		return x.Then
	case "else":
		return x.Else
	default:
		return nil
	}
}

func (f frame) conditional(x *ir.If, cur *cursor) block {
	b := &ifBlock{}
	var (
		current     string
		branchOwner *owner
		first       = true
	)

	renderBranch := func(name string, cur *cursor) {
		branchOwner = f.owner.child()
		bf := f.withOwner(branchOwner).at(name)
		if node := branchNode(x, name); node != nil {
			b.branch = bf.render(node, cur)
		} else {
			b.branch = nil
		}
		current = name
	}

	f.effect(x.If, func(ctx *expr.Context) {
		name := branchName(x, ctx)
		if first {
			first = false
			if cur == nil {
				b.marker = dom.NewComment(ifMarkerPrefix + name)
				renderBranch(name, nil)
				return
			}
			f.hydrateConditional(x, b, name, cur, renderBranch)
			return
		}
		if name == current {
			return
		}

		detachBlock(b.branch)
		branchOwner.dispose(f.app.cleanupFailed)
		b.marker.Data = ifMarkerPrefix + name
		renderBranch(name, nil)
		if b.branch != nil && b.marker.Parent != nil {
			insertBlockBefore(b.marker.Parent, b.branch, b.marker.NextSibling)
		}
	})
	return b
}

// hydrateConditional claims the branch marker at the cursor. When the
// server rendered another branch, only that branch's extent is replaced.
func (f frame) hydrateConditional(x *ir.If, b *ifBlock, name string, cur *cursor, renderBranch func(string, *cursor)) {
	cur.skipWhitespace()
	marker := cur.next
	if !isIfMarker(marker) || !cur.markers.take(marker) {
		f.app.report(NewHydrationMismatchError("<!--"+ifMarkerPrefix+name+"-->", describe(marker)), f.island)
		b.marker = dom.NewComment(ifMarkerPrefix + name)
		cur.insert(b.marker)
		renderBranch(name, nil)
		if b.branch != nil {
			cur.insertBlock(b.branch)
		}
		return
	}
	cur.take()
	b.marker = marker

	server := marker.Data[len(ifMarkerPrefix):]
	if server == name {
		renderBranch(name, cur)
		return
	}

	f.app.report(NewBranchMismatchError(server, name), f.island)

	// Claim the server branch with a throwaway owner to learn its extent,
	// then replace it.
	if node := branchNode(x, server); node != nil {
		tmp := f.owner.child()
		stale := f.withOwner(tmp).at(server).render(node, cur)
		detachBlock(stale)
		tmp.dispose(f.app.cleanupFailed)
	}
	marker.Data = ifMarkerPrefix + name
	renderBranch(name, nil)
	if b.branch != nil {
		cur.insertBlock(b.branch)
	}
}

// local wraps x.Child in a local scope. The scope lives in the app's arena
// under the frame's instance key.
func (f frame) local(x *ir.Local, cur *cursor) block {
	key := f.path + "/local"
	external := externalFields(x.State)

	var seed map[string]any
	if cur != nil && len(external) > 0 {
		seed = readLocalSeed(cur, external)
	}

	sc, existed := f.app.arena.get(key, func() *state.Scope {
		return state.NewLocal(f.scope, x.Actions, key)
	})
	if !existed {
		state.InitFields(sc, x.State, f.ctx, seed)
	}
	f.owner.onCleanup(func() { f.app.arena.release(key, sc) })

	b := f.withScope(sc).render(x.Child, cur)

	if cur == nil && len(external) > 0 {
		if el := firstElement(b); el != nil {
			values := make(map[string]any, len(external))
			for _, name := range external {
				values[name] = sc.Store().Get(name)
			}
			if data, err := ir.MarshalCanonical(values); err == nil {
				dom.SetAttr(el, AttrLocalState, string(data))
			}
		}
	}
	return b
}

// externalFields lists the non-computed fields whose initial value can
// differ between server and client.
func externalFields(defs ir.StateDefs) []string {
	var out []string
	for _, fd := range defs {
		if fd.Computed == nil && fd.Initial != nil && expr.Analyze(fd.Initial).External() {
			out = append(out, fd.Name)
		}
	}
	return out
}

// readLocalSeed reads server values for names from the data-local-state
// attribute of the element at the cursor.
func readLocalSeed(cur *cursor, names []string) map[string]any {
	cur.skipWhitespace()
	el := cur.next
	if el == nil || el.Type != html.ElementNode {
		return nil
	}
	raw, ok := dom.GetAttr(el, AttrLocalState)
	if !ok {
		return nil
	}
	all, err := decodeObject(raw)
	if err != nil {
		return nil
	}
	seed := make(map[string]any, len(names))
	for _, name := range names {
		if v, ok := all[name]; ok {
			seed[name] = v
		}
	}
	return seed
}

// static renders content that never changes. On hydration the server
// element is adopted as-is when it carries the expected class.
func (f frame) static(cur *cursor, class string, build func() (*html.Node, error)) *html.Node {
	if cur != nil {
		cur.skipWhitespace()
		if n := cur.next; n != nil && n.Type == html.ElementNode && dom.AttrOr(n, "class", "") == class {
			return cur.take()
		}
		f.app.report(NewHydrationMismatchError(`<div class="`+class+`">`, describe(cur.next)), f.island)
	}
	el, err := build()
	if err != nil {
		f.app.logger.Warn("render content failed", "class", class, "error", err)
		el = dom.NewElement("div")
		dom.SetAttr(el, "class", class)
	}
	if cur != nil {
		cur.insert(el)
	}
	return el
}

// portal leaves a placeholder and renders children at the end of the
// target, after a content marker. The content is removed with the portal.
func (f frame) portal(x *ir.Portal, cur *cursor) *html.Node {
	placeholder := f.placeholder(cur, portalMarker)

	var (
		marker *html.Node
		blocks listBlock
	)
	f.owner.onCleanup(func() {
		detachBlock(blocks)
		if marker != nil {
			dom.Detach(marker)
			delete(f.app.claimed, marker)
		}
	})

	if cur != nil {
		target := f.app.portalTarget(x.Target)
		if marker = f.app.claimPortalContent(target); marker != nil {
			contentCur := portalCursor(marker)
			for i, c := range x.Children {
				blocks = append(blocks, f.atIndex(i).render(c, contentCur))
			}
			return placeholder
		}
		f.app.report(NewHydrationMismatchError("<!--"+portalContent+"-->", "no portal content in "+x.Target), f.island)
	}

	marker = dom.NewComment(portalContent)
	f.app.claimed[marker] = true
	for i, c := range x.Children {
		blocks = append(blocks, f.atIndex(i).render(c, nil))
	}
	f.app.afterRender(func() {
		if f.owner.disposed {
			return
		}
		target := f.app.portalTarget(x.Target)
		target.AppendChild(marker)
		insertBlockBefore(target, blocks, nil)
	})
	return placeholder
}

func (f frame) slot(x *ir.Slot, cur *cursor) *html.Node {
	return f.placeholder(cur, slotPrefix+x.Name)
}

// placeholder claims or creates a comment with the given data.
func (f frame) placeholder(cur *cursor, data string) *html.Node {
	if cur != nil {
		if n := cur.takeComment(data); n != nil {
			return n
		}
		f.app.report(NewHydrationMismatchError("<!--"+data+"-->", describe(cur.next)), f.island)
	}
	n := dom.NewComment(data)
	if cur != nil {
		cur.insert(n)
	}
	return n
}
