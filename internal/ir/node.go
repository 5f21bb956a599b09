package ir

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NodeKind is the "kind" tag of a compiled view node.
type NodeKind string

const (
	NodeElement  NodeKind = "element"
	NodeText     NodeKind = "text"
	NodeIf       NodeKind = "if"
	NodeEach     NodeKind = "each"
	NodeLocal    NodeKind = "local"
	NodeIsland   NodeKind = "island"
	NodeMarkdown NodeKind = "markdown"
	NodeCode     NodeKind = "code"
	NodePortal   NodeKind = "portal"
	NodeSlot     NodeKind = "slot"
)

// ErrUnknownNodeKind is returned when a "kind" tag is not recognized.
var ErrUnknownNodeKind = errors.New("unknown node kind")

// Node is a sealed interface over the compiled view node variants.
// The tree is owned top-down; no node refers back to its parent.
type Node interface {
	Kind() NodeKind
	irNode()
}

// EventHandler binds a DOM event to a named action.
type EventHandler struct {
	Event   string
	Action  string
	Payload Expr // optional
}

// Prop is one element property. Exactly one of Value or Handler is set.
type Prop struct {
	Name    string
	Value   Expr
	Handler *EventHandler
}

// Element is a DOM element with props and children.
type Element struct {
	Tag      string
	Props    []Prop
	Children []Node
	Ref      string // optional DOM ref name
	Prefetch string // "", "hover" or "visible"
}

// Text is a text node whose content is an evaluated expression.
type Text struct {
	Value Expr
}

// If renders Then when the condition is truthy, else the optional Else.
type If struct {
	If   Expr
	Then Node
	Else Node
}

// Each renders Body once per item of Items.
type Each struct {
	Items Expr
	As    string
	Index string // optional index alias
	Key   Expr   // optional key expression
	Body  Node
}

// Local wraps Child in a local state scope.
type Local struct {
	State   StateDefs
	Actions Actions
	Child   Node
}

// Island is an isolated, independently hydrated subtree.
type Island struct {
	ID       string
	Strategy string
	Options  map[string]any
	State    StateDefs
	Actions  Actions
	Content  Node
}

// Markdown is static markdown content rendered to HTML.
type Markdown struct {
	Content string
}

// Code is a static code block.
type Code struct {
	Language string
	Content  string
}

// Portal renders Children into a target elsewhere in the document.
type Portal struct {
	Target   string
	Children []Node
}

// Slot is a placeholder for content supplied by a layout.
type Slot struct {
	Name string
}

func (*Element) Kind() NodeKind  { return NodeElement }
func (*Text) Kind() NodeKind     { return NodeText }
func (*If) Kind() NodeKind       { return NodeIf }
func (*Each) Kind() NodeKind     { return NodeEach }
func (*Local) Kind() NodeKind    { return NodeLocal }
func (*Island) Kind() NodeKind   { return NodeIsland }
func (*Markdown) Kind() NodeKind { return NodeMarkdown }
func (*Code) Kind() NodeKind     { return NodeCode }
func (*Portal) Kind() NodeKind   { return NodePortal }
func (*Slot) Kind() NodeKind     { return NodeSlot }

func (*Element) irNode()  {}
func (*Text) irNode()     {}
func (*If) irNode()       {}
func (*Each) irNode()     {}
func (*Local) irNode()    {}
func (*Island) irNode()   {}
func (*Markdown) irNode() {}
func (*Code) irNode()     {}
func (*Portal) irNode()   {}
func (*Slot) irNode()     {}

// nodeWire carries every field any node variant may use.
type nodeWire struct {
	Kind     NodeKind          `json:"kind"`
	Tag      string            `json:"tag"`
	Props    json.RawMessage   `json:"props"`
	Children []json.RawMessage `json:"children"`
	Ref      string            `json:"ref"`
	Prefetch string            `json:"prefetch"`
	Value    json.RawMessage   `json:"value"`
	If       json.RawMessage   `json:"if"`
	Then     json.RawMessage   `json:"then"`
	Else     json.RawMessage   `json:"else"`
	Items    json.RawMessage   `json:"items"`
	As       string            `json:"as"`
	Index    string            `json:"index"`
	Key      json.RawMessage   `json:"key"`
	Body     json.RawMessage   `json:"body"`
	State    json.RawMessage   `json:"state"`
	Actions  json.RawMessage   `json:"actions"`
	Child    json.RawMessage   `json:"child"`
	ID       string            `json:"id"`
	Strategy string            `json:"strategy"`
	Options  map[string]any    `json:"options"`
	Content  json.RawMessage   `json:"content"`
	Language string            `json:"language"`
	Target   string            `json:"target"`
	Name     string            `json:"name"`
}

// DecodeNode decodes a tagged view node.
func DecodeNode(data []byte) (Node, error) {
	if isNullRaw(data) {
		return nil, fmt.Errorf("node is null")
	}

	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}

	switch w.Kind {
	case NodeElement:
		if w.Tag == "" {
			return nil, fmt.Errorf("element: tag is required")
		}
		props, err := decodeProps(w.Props)
		if err != nil {
			return nil, fmt.Errorf("element <%s>: %w", w.Tag, err)
		}
		children, err := decodeNodeList(w.Children)
		if err != nil {
			return nil, fmt.Errorf("element <%s> children: %w", w.Tag, err)
		}
		return &Element{Tag: w.Tag, Props: props, Children: children, Ref: w.Ref, Prefetch: w.Prefetch}, nil

	case NodeText:
		v, err := decodeExprOrLiteral(w.Value)
		if err != nil {
			return nil, fmt.Errorf("text: %w", err)
		}
		if v == nil {
			v = &Lit{Value: ""}
		}
		return &Text{Value: v}, nil

	case NodeIf:
		cond, err := DecodeExpr(w.If)
		if err != nil {
			return nil, fmt.Errorf("if: %w", err)
		}
		then, err := DecodeNode(w.Then)
		if err != nil {
			return nil, fmt.Errorf("if.then: %w", err)
		}
		var els Node
		if !isNullRaw(w.Else) {
			if els, err = DecodeNode(w.Else); err != nil {
				return nil, fmt.Errorf("if.else: %w", err)
			}
		}
		return &If{If: cond, Then: then, Else: els}, nil

	case NodeEach:
		items, err := DecodeExpr(w.Items)
		if err != nil {
			return nil, fmt.Errorf("each.items: %w", err)
		}
		key, err := decodeOptionalExpr(w.Key)
		if err != nil {
			return nil, fmt.Errorf("each.key: %w", err)
		}
		body, err := DecodeNode(w.Body)
		if err != nil {
			return nil, fmt.Errorf("each.body: %w", err)
		}
		return &Each{Items: items, As: w.As, Index: w.Index, Key: key, Body: body}, nil

	case NodeLocal:
		var n Local
		if err := n.State.UnmarshalJSON(w.State); err != nil {
			return nil, fmt.Errorf("local.state: %w", err)
		}
		if err := n.Actions.UnmarshalJSON(w.Actions); err != nil {
			return nil, fmt.Errorf("local.actions: %w", err)
		}
		child, err := DecodeNode(w.Child)
		if err != nil {
			return nil, fmt.Errorf("local.child: %w", err)
		}
		n.Child = child
		return &n, nil

	case NodeIsland:
		if w.ID == "" {
			return nil, fmt.Errorf("island: id is required")
		}
		n := Island{ID: w.ID, Strategy: w.Strategy, Options: w.Options}
		if err := n.State.UnmarshalJSON(w.State); err != nil {
			return nil, fmt.Errorf("island %s state: %w", w.ID, err)
		}
		if err := n.Actions.UnmarshalJSON(w.Actions); err != nil {
			return nil, fmt.Errorf("island %s actions: %w", w.ID, err)
		}
		content, err := DecodeNode(w.Content)
		if err != nil {
			return nil, fmt.Errorf("island %s content: %w", w.ID, err)
		}
		n.Content = content
		return &n, nil

	case NodeMarkdown:
		var content string
		if err := json.Unmarshal(w.Content, &content); err != nil {
			return nil, fmt.Errorf("markdown: content must be a string: %w", err)
		}
		return &Markdown{Content: content}, nil

	case NodeCode:
		var content string
		if err := json.Unmarshal(w.Content, &content); err != nil {
			return nil, fmt.Errorf("code: content must be a string: %w", err)
		}
		return &Code{Language: w.Language, Content: content}, nil

	case NodePortal:
		children, err := decodeNodeList(w.Children)
		if err != nil {
			return nil, fmt.Errorf("portal children: %w", err)
		}
		return &Portal{Target: w.Target, Children: children}, nil

	case NodeSlot:
		return &Slot{Name: w.Name}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeKind, w.Kind)
	}
}

// decodeProps decodes element props in declaration order. An object with an
// "action" key and no "expr" key is an event handler.
func decodeProps(data []byte) ([]Prop, error) {
	fields, err := decodeOrderedObject(data)
	if err != nil {
		return nil, err
	}
	props := make([]Prop, 0, len(fields))
	for _, f := range fields {
		if hasKey(f.Value, "action") && !hasKey(f.Value, "expr") {
			var h struct {
				Event   string          `json:"event"`
				Action  string          `json:"action"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := json.Unmarshal(f.Value, &h); err != nil {
				return nil, fmt.Errorf("prop %s: %w", f.Key, err)
			}
			payload, err := decodeOptionalExpr(h.Payload)
			if err != nil {
				return nil, fmt.Errorf("prop %s payload: %w", f.Key, err)
			}
			event := h.Event
			if event == "" {
				event = EventNameFromProp(f.Key)
			}
			props = append(props, Prop{
				Name:    f.Key,
				Handler: &EventHandler{Event: event, Action: h.Action, Payload: payload},
			})
			continue
		}
		v, err := decodeExprOrLiteral(f.Value)
		if err != nil {
			return nil, fmt.Errorf("prop %s: %w", f.Key, err)
		}
		props = append(props, Prop{Name: f.Key, Value: v})
	}
	return props, nil
}

// EventNameFromProp derives a DOM event name from an "onXxx" prop name:
// onClick -> click, onMouseOver -> mouseover.
func EventNameFromProp(prop string) string {
	name := prop
	if len(name) > 2 && name[:2] == "on" {
		name = name[2:]
	}
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func decodeNodeList(raws []json.RawMessage) ([]Node, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]Node, 0, len(raws))
	for i, raw := range raws {
		n, err := DecodeNode(raw)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Walk visits n and its descendants depth-first in document order.
// Returning false from fn stops descent into that node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Element:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	case *If:
		Walk(v.Then, fn)
		Walk(v.Else, fn)
	case *Each:
		Walk(v.Body, fn)
	case *Local:
		Walk(v.Child, fn)
	case *Island:
		Walk(v.Content, fn)
	case *Portal:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	}
}
