package engine

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
)

// cursor is a position among the children of a server-rendered node.
// Hydration consumes children left to right; next is the first child not
// yet claimed by the view.
type cursor struct {
	parent  *html.Node
	next    *html.Node
	markers *markerQueue
}

func newCursor(root *html.Node) *cursor {
	return &cursor{parent: root, next: root.FirstChild, markers: collectMarkers(root.FirstChild)}
}

// portalCursor starts after a portal content marker. Portal content is
// hydrated out of view order, so it consumes its own markers.
func portalCursor(marker *html.Node) *cursor {
	return &cursor{parent: marker.Parent, next: marker.NextSibling, markers: collectMarkers(marker.NextSibling)}
}

// child returns a cursor over the children of n sharing the marker queue.
func (c *cursor) child(n *html.Node) *cursor {
	return &cursor{parent: n, next: n.FirstChild, markers: c.markers}
}

// skipWhitespace steps over whitespace-only text. Used when the view
// expects an element or a comment, never when it expects text.
func (c *cursor) skipWhitespace() {
	for c.next != nil && dom.IsWhitespaceText(c.next) {
		c.next = c.next.NextSibling
	}
}

// take consumes and returns the next child.
func (c *cursor) take() *html.Node {
	n := c.next
	if n != nil {
		c.next = n.NextSibling
	}
	return n
}

// insert places n before the cursor without consuming anything.
func (c *cursor) insert(n *html.Node) {
	c.parent.InsertBefore(n, c.next)
}

func (c *cursor) insertBlock(b block) {
	insertBlockBefore(c.parent, b, c.next)
}

// takeElement consumes the next element if its tag matches.
func (c *cursor) takeElement(tag string) *html.Node {
	c.skipWhitespace()
	if n := c.next; n != nil && n.Type == html.ElementNode && n.Data == strings.ToLower(tag) {
		return c.take()
	}
	return nil
}

// takeComment consumes the next comment if its data matches.
func (c *cursor) takeComment(data string) *html.Node {
	c.skipWhitespace()
	if dom.IsComment(c.next, data) {
		return c.take()
	}
	return nil
}

// takeText claims a server text node for the expected value. Adjacent
// texts that the server output merged are split at the expected length.
// An empty expected value claims an empty split and leaves the server
// text to the next claimant. A text node with other content is adopted and
// corrected by the caller. It returns nil when there is no text node to
// claim.
func (c *cursor) takeText(value string) *html.Node {
	n := c.next
	if n == nil || n.Type != html.TextNode {
		return nil
	}
	switch {
	case n.Data == value:
	case len(n.Data) > len(value) && strings.HasPrefix(n.Data, value):
		rest := dom.NewText(n.Data[len(value):])
		n.Data = value
		n.Parent.InsertBefore(rest, n.NextSibling)
	}
	return c.take()
}

// describe names a node for mismatch reports.
func describe(n *html.Node) string {
	if n == nil {
		return "end of parent"
	}
	switch n.Type {
	case html.ElementNode:
		return "<" + n.Data + ">"
	case html.TextNode:
		return fmt.Sprintf("text %q", n.Data)
	case html.CommentNode:
		return "<!--" + n.Data + "-->"
	default:
		return "node"
	}
}

// markerQueue holds the conditional markers of a hydration root in
// document order. A marker is consumed at most once and only after every
// marker before it, so two adjacent conditionals of the same shape cannot
// claim each other's marker.
type markerQueue struct {
	order []*html.Node
	pos   map[*html.Node]int
	next  int
}

func collectMarkers(first *html.Node) *markerQueue {
	q := &markerQueue{pos: make(map[*html.Node]int)}
	q.collect(first)
	return q
}

// collect walks first, its subtree and its following siblings. A portal
// content marker ends the walk at its level; what follows it belongs to
// that portal's queue.
func (q *markerQueue) collect(first *html.Node) {
	for n := first; n != nil; n = n.NextSibling {
		if dom.IsComment(n, portalContent) {
			return
		}
		if isIfMarker(n) {
			q.pos[n] = len(q.order)
			q.order = append(q.order, n)
		}
		q.collect(n.FirstChild)
	}
}

func isIfMarker(n *html.Node) bool {
	return n != nil && n.Type == html.CommentNode && strings.HasPrefix(n.Data, ifMarkerPrefix)
}

// take consumes n if it is a marker not passed yet.
func (q *markerQueue) take(n *html.Node) bool {
	i, ok := q.pos[n]
	if !ok || i < q.next {
		return false
	}
	q.next = i + 1
	return true
}

// remaining returns the markers after the last consumed one that are
// still under root. Markers inside replaced server branches are gone.
func (q *markerQueue) remaining(root *html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range q.order[q.next:] {
		if dom.Contains(root, n) {
			out = append(out, n)
		}
	}
	return out
}
