package engine

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/expr"
	"github.com/roach88/islet/internal/ir"
)

// eachBlock is a loop between its start and end anchors.
type eachBlock struct {
	start, end *html.Node
	items      []*itemRecord
}

// itemRecord is one rendered loop item.
type itemRecord struct {
	key   string
	sig   string // canonical form of the item value
	index int
	owner *owner
	block block
}

func (b *eachBlock) nodes() []*html.Node {
	out := []*html.Node{b.start}
	for _, r := range b.items {
		out = append(out, r.block.nodes()...)
	}
	return append(out, b.end)
}

// loopItem is an evaluated item with its vars and key.
type loopItem struct {
	value any
	vars  map[string]any
	key   string
}

func (f frame) loopItems(x *ir.Each, ctx *expr.Context) []loopItem {
	list, _ := expr.Evaluate(x.Items, ctx).([]any)
	items := make([]loopItem, len(list))
	seen := make(map[string]int, len(list))
	for i, v := range list {
		vars := map[string]any{x.As: v}
		if x.Index != "" {
			vars[x.Index] = float64(i)
		}
		key := "#" + strconv.Itoa(i)
		if x.Key != nil {
			key = ir.CanonicalKey(expr.Evaluate(x.Key, ctx.WithVars(vars)))
		}
		if n := seen[key]; n > 0 {
			seen[key] = n + 1
			key += "~" + strconv.Itoa(n)
		} else {
			seen[key] = 1
		}
		items[i] = loopItem{value: v, vars: vars, key: key}
	}
	return items
}

func (f frame) renderItem(x *ir.Each, it loopItem, i int, cur *cursor) *itemRecord {
	o := f.owner.child()
	itemFrame := f.withOwner(o).at("[" + it.key + "]").withVars(it.vars)
	return &itemRecord{
		key:   it.key,
		sig:   ir.CanonicalKey(it.value),
		index: i,
		owner: o,
		block: itemFrame.render(x.Body, cur),
	}
}

func (f frame) each(x *ir.Each, cur *cursor) block {
	b := &eachBlock{}
	first := true

	f.effect(x.Items, func(ctx *expr.Context) {
		items := f.loopItems(x, ctx)
		if first {
			first = false
			if cur == nil {
				b.start, b.end = dom.NewComment(eachStart), dom.NewComment(eachEnd)
				for i, it := range items {
					b.items = append(b.items, f.renderItem(x, it, i, nil))
				}
				return
			}
			f.hydrateEach(x, b, items, cur)
			return
		}
		f.reconcile(x, b, items)
	})
	f.owner.onCleanup(func() { b.items = nil })
	return b
}

// hydrateEach claims server items positionally. Missing items are rendered
// before the end anchor; surplus server items are removed.
func (f frame) hydrateEach(x *ir.Each, b *eachBlock, items []loopItem, cur *cursor) {
	if b.start = cur.takeComment(eachStart); b.start == nil {
		f.app.report(NewHydrationMismatchError("<!--"+eachStart+"-->", describe(cur.next)), f.island)
		b.start = dom.NewComment(eachStart)
		cur.insert(b.start)
	}
	for i, it := range items {
		b.items = append(b.items, f.renderItem(x, it, i, cur))
	}

	end := findEachEnd(cur.next)
	if end == nil {
		f.app.report(NewHydrationMismatchError("<!--"+eachEnd+"-->", describe(cur.next)), f.island)
		b.end = dom.NewComment(eachEnd)
		cur.insert(b.end)
		return
	}
	removed := 0
	for n := cur.next; n != end; {
		next := n.NextSibling
		if !dom.IsWhitespaceText(n) {
			removed++
		}
		dom.Detach(n)
		n = next
	}
	if removed > 0 {
		f.app.report(NewHydrationMismatchError(strconv.Itoa(len(items))+" items", "surplus server nodes"), f.island)
	}
	cur.next = end
	b.end = cur.take()
}

// findEachEnd returns the end anchor matching the loop open before from,
// skipping nested loops.
func findEachEnd(from *html.Node) *html.Node {
	depth := 0
	for n := from; n != nil; n = n.NextSibling {
		switch {
		case dom.IsComment(n, eachStart):
			depth++
		case dom.IsComment(n, eachEnd):
			if depth == 0 {
				return n
			}
			depth--
		}
	}
	return nil
}

// reconcile updates b to items. Items whose key, value and position are
// unchanged keep their nodes; changed items are rebuilt under the same
// instance key so their local state survives.
func (f frame) reconcile(x *ir.Each, b *eachBlock, items []loopItem) {
	old := make(map[string]*itemRecord, len(b.items))
	for _, r := range b.items {
		old[r.key] = r
	}

	next := make([]*itemRecord, len(items))
	for i, it := range items {
		r, ok := old[it.key]
		if !ok {
			next[i] = f.renderItem(x, it, i, nil)
			continue
		}
		delete(old, it.key)
		if r.sig == ir.CanonicalKey(it.value) && (x.Index == "" || r.index == i) {
			next[i] = r
			continue
		}
		f.app.arena.retain(func() {
			detachBlock(r.block)
			r.owner.dispose(f.app.cleanupFailed)
			next[i] = f.renderItem(x, it, i, nil)
		})
	}
	for _, r := range b.items {
		if _, stale := old[r.key]; stale {
			detachBlock(r.block)
			r.owner.dispose(f.app.cleanupFailed)
		}
	}
	b.items = next

	parent := b.start.Parent
	if parent == nil {
		return
	}
	ref := b.start.NextSibling
	for _, r := range next {
		for _, n := range r.block.nodes() {
			if n == ref {
				ref = ref.NextSibling
				continue
			}
			dom.InsertBefore(parent, n, ref)
		}
	}
}
