package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/go-cmp/cmp"

	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/island"
)

// Validation error codes (E200-E299)
const (
	ErrUnsupportedVersion  = "E200" // program version not accepted by the runtime
	ErrUnknownHandler      = "E201" // event handler names an undeclared action
	ErrUnknownLifecycle    = "E202" // lifecycle hook names an undeclared action
	ErrEmptyTag            = "E203" // element without a tag
	ErrInvalidStrategy     = "E204" // unknown island strategy
	ErrDuplicateIsland     = "E205" // island id reused with different content
	ErrEachWithoutAs       = "E206" // each without an item alias
	ErrUnknownCallTarget   = "E207" // call step names an undeclared action
	ErrEmptyIslandID       = "E208" // island without an id
	ErrMediaWithoutQuery   = "E209" // media strategy without a media option
	ErrMissingView         = "E210" // program has no view
	ErrInvalidPortalTarget = "E211" // portal target is neither #id nor body
)

// ValidationError represents a program validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a program for structural errors.
// Returns all errors found (does not fail-fast), in document order.
func Validate(p *ir.Program) []ValidationError {
	v := &validator{islands: make(map[string]*ir.Island)}
	if p == nil {
		return []ValidationError{{Field: "program", Message: "program is nil", Code: ErrMissingView}}
	}

	if !ir.SupportsVersion(p.Version) {
		v.add("version", ErrUnsupportedVersion, "version %q is not supported (want %q)", p.Version, ir.IRVersion)
	}

	global := &actionScope{actions: p.Actions}
	for _, hook := range []struct{ field, name string }{
		{"lifecycle.onMount", p.Lifecycle.OnMount},
		{"lifecycle.onUnmount", p.Lifecycle.OnUnmount},
		{"lifecycle.onRouteEnter", p.Lifecycle.OnRouteEnter},
		{"lifecycle.onRouteLeave", p.Lifecycle.OnRouteLeave},
	} {
		if hook.name != "" && !global.has(hook.name) {
			v.add(hook.field, ErrUnknownLifecycle, "unknown action %q%s", hook.name, global.hint(hook.name))
		}
	}
	v.actions("actions", p.Actions, global)

	if p.View == nil {
		v.add("view", ErrMissingView, "program has no view")
		return v.errs
	}
	root := global
	if len(p.LocalState) > 0 || len(p.LocalActions) > 0 {
		root = &actionScope{actions: p.LocalActions, parent: global}
		v.actions("localActions", p.LocalActions, root)
	}
	v.node("view", p.View, root)
	return v.errs
}

type validator struct {
	errs    []ValidationError
	islands map[string]*ir.Island
}

func (v *validator) add(field, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// actionScope mirrors the runtime's action lookup chain.
type actionScope struct {
	actions ir.Actions
	parent  *actionScope
}

func (s *actionScope) has(name string) bool {
	for c := s; c != nil; c = c.parent {
		if _, ok := c.actions[name]; ok {
			return true
		}
	}
	return false
}

// hint suggests the closest visible action name.
func (s *actionScope) hint(name string) string {
	var names []string
	for c := s; c != nil; c = c.parent {
		names = append(names, c.actions.Names()...)
	}
	slices.Sort(names)
	best, bestDist := "", max(2, len(name)/3)+1
	for _, candidate := range names {
		if d := levenshtein.ComputeDistance(name, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}

func (v *validator) actions(field string, actions ir.Actions, scope *actionScope) {
	names := actions.Names()
	slices.Sort(names)
	for _, name := range names {
		v.steps(field+"."+name, actions[name].Steps, scope)
	}
}

func (v *validator) steps(field string, steps []ir.Step, scope *actionScope) {
	for i, step := range steps {
		f := fmt.Sprintf("%s[%d]", field, i)
		switch s := step.(type) {
		case *ir.CallStep:
			if !scope.has(s.Action) {
				v.add(f, ErrUnknownCallTarget, "unknown action %q%s", s.Action, scope.hint(s.Action))
			}
		case *ir.FetchStep:
			v.steps(f+".onSuccess", s.OnSuccess, scope)
			v.steps(f+".onError", s.OnError, scope)
		case *ir.StorageStep:
			v.steps(f+".onError", s.OnError, scope)
		}
	}
}

func (v *validator) node(field string, n ir.Node, scope *actionScope) {
	switch n := n.(type) {
	case nil:
	case *ir.Element:
		if strings.TrimSpace(n.Tag) == "" {
			v.add(field, ErrEmptyTag, "element has no tag")
		}
		for _, p := range n.Props {
			if p.Handler != nil && !scope.has(p.Handler.Action) {
				v.add(field+"."+p.Name, ErrUnknownHandler, "unknown action %q%s", p.Handler.Action, scope.hint(p.Handler.Action))
			}
		}
		v.children(field, n.Children, scope)
	case *ir.If:
		v.node(field+".then", n.Then, scope)
		v.node(field+".else", n.Else, scope)
	case *ir.Each:
		if n.As == "" {
			v.add(field, ErrEachWithoutAs, "each has no item alias")
		}
		v.node(field+".body", n.Body, scope)
	case *ir.Local:
		inner := &actionScope{actions: n.Actions, parent: scope}
		v.actions(field+".actions", n.Actions, inner)
		v.node(field+".child", n.Child, inner)
	case *ir.Island:
		v.island(field, n, scope)
	case *ir.Portal:
		if n.Target != "body" && (!strings.HasPrefix(n.Target, "#") || len(n.Target) == 1) {
			v.add(field, ErrInvalidPortalTarget, "portal target %q must be #id or body", n.Target)
		}
		v.children(field, n.Children, scope)
	}
}

func (v *validator) children(field string, children []ir.Node, scope *actionScope) {
	for i, c := range children {
		v.node(fmt.Sprintf("%s.children[%d]", field, i), c, scope)
	}
}

func (v *validator) island(field string, n *ir.Island, scope *actionScope) {
	field = fmt.Sprintf("%s<island %s>", field, n.ID)
	if n.ID == "" {
		v.add(field, ErrEmptyIslandID, "island has no id")
	}
	st, err := island.ParseStrategy(n.Strategy)
	if err != nil {
		v.add(field+".strategy", ErrInvalidStrategy, "%v", err)
	}
	if st == island.Media {
		if q, _ := n.Options["media"].(string); q == "" {
			v.add(field+".options", ErrMediaWithoutQuery, "media strategy needs a media option")
		}
	}
	if n.ID != "" {
		if prev, ok := v.islands[n.ID]; ok {
			if !cmp.Equal(prev, n) {
				v.add(field, ErrDuplicateIsland, "island id %q is reused with different content", n.ID)
			}
		} else {
			v.islands[n.ID] = n
		}
	}

	// Island actions sit directly over the global scope.
	inner := &actionScope{actions: n.Actions, parent: scope.root()}
	v.actions(field+".actions", n.Actions, inner)
	v.node(field+".content", n.Content, inner)
}

func (s *actionScope) root() *actionScope {
	for s.parent != nil {
		s = s.parent
	}
	return s
}
