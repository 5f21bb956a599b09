package engine

import (
	"bytes"
	"fmt"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
)

var markdown = goldmark.New()

// renderMarkdown converts content to a <div class="markdown">.
func renderMarkdown(content string) (*html.Node, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	div, err := dom.ParseContainer(buf.String())
	if err != nil {
		return nil, err
	}
	dom.SetAttr(div, "class", "markdown")
	return div, nil
}

// renderCode highlights content into a <div class="code">. Highlighting
// uses CSS classes, so the output does not depend on a theme. When the
// highlighter fails the content is emitted as plain <pre><code>.
func renderCode(language, content string) (*html.Node, error) {
	div := dom.NewElement("div")
	dom.SetAttr(div, "class", "code")
	if language != "" {
		dom.SetAttr(div, "data-language", language)
	}

	if markup, err := highlight(language, content); err == nil {
		if parsed, err := dom.ParseContainer(markup); err == nil {
			for c := parsed.FirstChild; c != nil; {
				next := c.NextSibling
				dom.InsertBefore(div, c, nil)
				c = next
			}
			return div, nil
		}
	}

	pre, code := dom.NewElement("pre"), dom.NewElement("code")
	code.AppendChild(dom.NewText(content))
	pre.AppendChild(code)
	div.AppendChild(pre)
	return div, nil
}

func highlight(language, content string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	it, err := lexer.Tokenise(nil, content)
	if err != nil {
		return "", fmt.Errorf("tokenise: %w", err)
	}
	var buf bytes.Buffer
	if err := chromahtml.New(chromahtml.WithClasses(true)).Format(&buf, style, it); err != nil {
		return "", fmt.Errorf("format: %w", err)
	}
	return buf.String(), nil
}
