package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestParseContainer_RoundTrip(t *testing.T) {
	markup := `<p class="a">hi <b>there</b></p><!--if:then--><span>x</span>`
	c, err := ParseContainer(markup)
	require.NoError(t, err)

	assert.Equal(t, markup, InnerHTML(c))
	assert.Equal(t, "<div>"+markup+"</div>", OuterHTML(c))
	assert.Equal(t, "hi therex", TextContent(c))
}

func TestAttributes(t *testing.T) {
	el := NewElement("BUTTON")
	assert.Equal(t, "button", el.Data)

	SetAttr(el, "id", "a")
	SetAttr(el, "class", "x")
	SetAttr(el, "id", "b")

	v, ok := GetAttr(el, "id")
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, "id", el.Attr[0].Key, "replacing keeps attribute order")

	RemoveAttr(el, "id")
	_, ok = GetAttr(el, "id")
	assert.False(t, ok)
	assert.Equal(t, "fallback", AttrOr(el, "id", "fallback"))
	assert.Equal(t, "x", AttrOr(el, "class", ""))

	RemoveAttr(el, "missing")
	assert.Len(t, el.Attr, 1)
}

func TestQueries(t *testing.T) {
	c := MustParseContainer(`<section id="s"><a href="/x">x</a><a data-k="1">y</a></section><main></main>`)

	s := ByID(c, "s")
	require.NotNil(t, s)
	assert.Equal(t, "section", s.Data)
	assert.Nil(t, ByID(c, "nope"))

	links := FindAll(c, ByTag("a"))
	assert.Len(t, links, 2)

	withKey := FindAll(c, HasAttr("data-k"))
	require.Len(t, withKey, 1)
	assert.Equal(t, "y", TextContent(withKey[0]))

	assert.Equal(t, s, Select(c, "#s"))
	assert.Equal(t, c, Select(c, "body"))
	assert.Equal(t, "main", Select(c, "main").Data)
	assert.True(t, Contains(c, links[0]))
	assert.False(t, Contains(links[0], c))
}

func TestInsertBeforeAndDetach(t *testing.T) {
	parent := NewElement("ul")
	a := NewElement("li")
	b := NewElement("li")
	SetAttr(a, "id", "a")
	SetAttr(b, "id", "b")

	InsertBefore(parent, a, nil)
	InsertBefore(parent, b, a)
	assert.Equal(t, `<li id="b"></li><li id="a"></li>`, InnerHTML(parent))

	// Moving an attached node detaches it first.
	InsertBefore(parent, b, nil)
	assert.Equal(t, `<li id="a"></li><li id="b"></li>`, InnerHTML(parent))

	Detach(a)
	assert.Nil(t, a.Parent)
	assert.Equal(t, `<li id="b"></li>`, InnerHTML(parent))

	ReplaceChildren(parent)
	assert.Nil(t, parent.FirstChild)
}

func TestNodePredicates(t *testing.T) {
	assert.True(t, IsWhitespaceText(NewText(" \n\t")))
	assert.False(t, IsWhitespaceText(NewText(" x ")))
	assert.False(t, IsWhitespaceText(NewElement("p")))

	assert.True(t, IsComment(NewComment("each"), "each"))
	assert.False(t, IsComment(NewComment("/each"), "each"))
	assert.False(t, IsComment(&html.Node{Type: html.TextNode, Data: "each"}, "each"))
}

func TestSelectors(t *testing.T) {
	c := MustParseContainer(`<ul class="list big"><li class="item">a</li><li class="item on" data-k="2">b</li></ul><p data-island-id="clock">c</p>`)

	tests := []struct {
		selector string
		want     []string
	}{
		{".item", []string{"a", "b"}},
		{".big", []string{"ab"}},
		{".it", nil},
		{"[data-k]", []string{"b"}},
		{"[data-k=2]", []string{"b"}},
		{`[data-island-id="clock"]`, []string{"c"}},
		{"[data-k=3]", nil},
		{"li", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			var got []string
			for _, n := range SelectAll(c, tt.selector) {
				got = append(got, TextContent(n))
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, []*html.Node{c}, SelectAll(c, "body"))
	assert.Nil(t, Select(c, ".missing"))
}
