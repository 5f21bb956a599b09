package dom

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NewElement creates a detached element.
func NewElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// NewComment creates a detached comment node.
func NewComment(s string) *html.Node {
	return &html.Node{Type: html.CommentNode, Data: s}
}

// NewContainer creates a detached <div> to render into.
func NewContainer() *html.Node {
	return NewElement("div")
}

// ParseContainer parses markup as the children of a detached <div>.
func ParseContainer(markup string) (*html.Node, error) {
	container := NewContainer()
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// MustParseContainer is like ParseContainer but panics on error.
// Use only in tests or when markup is known to be valid.
func MustParseContainer(markup string) *html.Node {
	c, err := ParseContainer(markup)
	if err != nil {
		panic(err)
	}
	return c
}

// OuterHTML serializes n and its subtree.
func OuterHTML(n *html.Node) string {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return ""
	}
	return b.String()
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return b.String()
		}
	}
	return b.String()
}

// TextContent concatenates the text of n and its descendants.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.CommentNode {
			continue
		}
		b.WriteString(TextContent(c))
	}
	return b.String()
}

// GetAttr returns the value of attribute key.
func GetAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value or def when absent.
func AttrOr(n *html.Node, key, def string) string {
	if v, ok := GetAttr(n, key); ok {
		return v
	}
	return def
}

// SetAttr sets attribute key, replacing an existing value in place so
// attribute order is stable.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key if present.
func RemoveAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Walk visits n and its descendants in document order until fn returns
// false.
func Walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// Find returns the first node under root (root included) matching pred.
func Find(root *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAll returns every node under root matching pred, in document order.
func FindAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ByID returns the element with the given id attribute.
func ByID(root *html.Node, id string) *html.Node {
	return Find(root, func(n *html.Node) bool {
		v, ok := GetAttr(n, "id")
		return n.Type == html.ElementNode && ok && v == id
	})
}

// HasAttr is a predicate matching elements carrying attribute key.
func HasAttr(key string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		_, ok := GetAttr(n, key)
		return n.Type == html.ElementNode && ok
	}
}

// ByTag is a predicate matching elements by tag name.
func ByTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

// Select resolves a small selector subset: "#id", "body" (the root),
// ".class", "[attr]", "[attr=value]" or a bare tag name.
func Select(root *html.Node, selector string) *html.Node {
	if selector == "" || selector == "body" {
		return root
	}
	return Find(root, Matcher(selector))
}

// SelectAll returns every element under root matching selector, in
// document order.
func SelectAll(root *html.Node, selector string) []*html.Node {
	if selector == "" || selector == "body" {
		return []*html.Node{root}
	}
	return FindAll(root, Matcher(selector))
}

// Matcher builds the element predicate for a Select selector.
func Matcher(selector string) func(*html.Node) bool {
	switch {
	case strings.HasPrefix(selector, "#"):
		return ByAttr("id", selector[1:])
	case strings.HasPrefix(selector, "."):
		class := selector[1:]
		return func(n *html.Node) bool {
			v, ok := GetAttr(n, "class")
			return n.Type == html.ElementNode && ok && slices.Contains(strings.Fields(v), class)
		}
	case strings.HasPrefix(selector, "[") && strings.HasSuffix(selector, "]"):
		key, value, hasValue := strings.Cut(selector[1:len(selector)-1], "=")
		if !hasValue {
			return HasAttr(key)
		}
		return ByAttr(key, strings.Trim(value, `"'`))
	default:
		return ByTag(selector)
	}
}

// ByAttr is a predicate matching elements whose attribute key equals value.
func ByAttr(key, value string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, ok := GetAttr(n, key)
		return n.Type == html.ElementNode && ok && v == value
	}
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// InsertBefore inserts n under parent before ref; a nil ref appends.
// n is detached first.
func InsertBefore(parent, n, ref *html.Node) {
	Detach(n)
	parent.InsertBefore(n, ref)
}

// ReplaceChildren removes every child of n.
func ReplaceChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// IsWhitespaceText reports whether n is a text node holding only
// whitespace.
func IsWhitespaceText(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode && strings.TrimSpace(n.Data) == ""
}

// IsComment reports whether n is a comment with exactly the given data.
func IsComment(n *html.Node, data string) bool {
	return n != nil && n.Type == html.CommentNode && n.Data == data
}

// Contains reports whether n is root or a descendant of root.
func Contains(root, n *html.Node) bool {
	for c := n; c != nil; c = c.Parent {
		if c == root {
			return true
		}
	}
	return false
}
