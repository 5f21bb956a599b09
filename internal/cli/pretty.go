package cli

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
)

// prettyHTML re-indents markup one element per line. Whitespace-only
// text is dropped, so the result is for reading; hydrate the compact form.
func prettyHTML(markup string) (string, error) {
	container, err := dom.ParseContainer(markup)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		writePretty(&b, c, 0)
	}
	return b.String(), nil
}

func writePretty(b *strings.Builder, n *html.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Type {
	case html.TextNode:
		if dom.IsWhitespaceText(n) {
			return
		}
		b.WriteString(indent + html.EscapeString(n.Data) + "\n")
	case html.CommentNode:
		b.WriteString(indent + "<!--" + n.Data + "-->\n")
	case html.ElementNode:
		if n.FirstChild == nil || (n.FirstChild == n.LastChild && n.FirstChild.Type == html.TextNode) {
			b.WriteString(indent + dom.OuterHTML(n) + "\n")
			return
		}
		b.WriteString(indent + "<" + n.Data)
		for _, a := range n.Attr {
			b.WriteString(" " + a.Key + `="` + html.EscapeString(a.Val) + `"`)
		}
		b.WriteString(">\n")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writePretty(b, c, depth+1)
		}
		b.WriteString(indent + "</" + n.Data + ">\n")
	}
}
