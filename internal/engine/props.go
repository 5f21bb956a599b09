package engine

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/expr"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/island"
)

// attrName maps a view prop name to its HTML attribute.
func attrName(prop string) string {
	switch prop {
	case "className":
		return "class"
	case "htmlFor":
		return "for"
	default:
		return prop
	}
}

// applyAttr writes v to the attribute name. nil and false remove it.
func applyAttr(el *html.Node, name string, v any) {
	switch x := v.(type) {
	case nil:
		dom.RemoveAttr(el, name)
	case bool:
		if x {
			dom.SetAttr(el, name, "")
		} else {
			dom.RemoveAttr(el, name)
		}
	default:
		dom.SetAttr(el, name, attrValue(name, v))
	}
}

func attrValue(name string, v any) string {
	switch name {
	case "class":
		return classValue(v)
	case "style":
		if m, ok := v.(map[string]any); ok {
			return styleValue(m)
		}
	}
	return expr.ToString(v)
}

// classValue flattens arrays of class names and {name: enabled} maps.
func classValue(v any) string {
	switch x := v.(type) {
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := classValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case map[string]any:
		var parts []string
		for _, k := range ir.SortedKeys(x) {
			if expr.Truthy(x[k]) {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, " ")
	case nil, bool:
		return ""
	default:
		return expr.ToString(v)
	}
}

// styleValue renders a style object as declarations sorted by property.
func styleValue(m map[string]any) string {
	decls := make([]string, 0, len(m))
	for k, v := range m {
		if v == nil || v == false {
			continue
		}
		decls = append(decls, kebab(k)+": "+expr.ToString(v))
	}
	sort.Strings(decls)
	return strings.Join(decls, "; ")
}

func kebab(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// props binds x's props, handlers, ref and prefetch to el.
func (f frame) props(el *html.Node, x *ir.Element) {
	for _, p := range x.Props {
		if p.Handler != nil {
			f.handler(el, p.Handler)
			continue
		}
		name := attrName(p.Name)
		value := p.Value
		applyAttr(el, name, expr.Evaluate(value, f.ctx))
		if isStatic(value) {
			continue
		}
		f.effect(value, func(ctx *expr.Context) {
			applyAttr(el, name, expr.Evaluate(value, ctx))
		})
	}

	if x.Ref != "" {
		f.app.refs[x.Ref] = map[string]any{
			"tagName": strings.ToUpper(el.Data),
			"id":      dom.AttrOr(el, "id", ""),
		}
		name := x.Ref
		f.owner.onCleanup(func() { delete(f.app.refs, name) })
	}

	if x.Prefetch != "" && el.Data == "a" && f.app.window != nil {
		href := dom.AttrOr(el, "href", "")
		fetch := func() { f.app.prefetch(href) }
		switch x.Prefetch {
		case "hover":
			f.owner.onCleanup(island.PrefetchOnHover(f.app.window, el, fetch))
		case "visible":
			f.owner.onCleanup(island.PrefetchOnVisible(f.app.window, el, fetch))
		}
	}
}

func (f frame) handler(el *html.Node, h *ir.EventHandler) {
	if f.app.window == nil {
		return
	}
	remove := f.app.window.AddEventListener(el, h.Event, func(ev *dom.Event) {
		ctx := f.ctx.WithVar("event", map[string]any{"type": ev.Type, "value": ev.Value})
		var payload any
		if h.Payload != nil {
			payload = expr.Evaluate(h.Payload, ctx)
		}
		f.app.dispatch(f.scope, h.Action, payload, ctx, f.island)
	})
	f.owner.onCleanup(remove)
}
