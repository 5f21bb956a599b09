package ir

import (
	"encoding/json"
	"fmt"
)

// Program is a compiled program as produced by the external compiler.
type Program struct {
	Version      string
	State        StateDefs
	Actions      Actions
	View         Node
	ImportData   map[string]any
	Styles       map[string]any
	Route        map[string]any
	Lifecycle    Lifecycle
	LocalState   StateDefs
	LocalActions Actions
}

// Lifecycle names the actions dispatched at app lifecycle points.
type Lifecycle struct {
	OnMount      string `json:"onMount,omitempty"`
	OnUnmount    string `json:"onUnmount,omitempty"`
	OnRouteEnter string `json:"onRouteEnter,omitempty"`
	OnRouteLeave string `json:"onRouteLeave,omitempty"`
}

// StateField declares one state cell.
type StateField struct {
	Name     string
	Type     string
	Initial  Expr // nil means undefined
	Computed Expr // non-nil makes the cell a memoized derivation
}

// StateDefs is an ordered list of state declarations. JSON objects decode
// in source order, which is the declaration order used for initialization.
type StateDefs []StateField

// UnmarshalJSON decodes {name: {type, initial, computed}} preserving order.
// A bare JSON value in place of the definition object is taken as the
// initial value.
func (d *StateDefs) UnmarshalJSON(data []byte) error {
	fields, err := decodeOrderedObject(data)
	if err != nil {
		return err
	}
	out := make(StateDefs, 0, len(fields))
	for _, f := range fields {
		field := StateField{Name: f.Key}
		if hasKey(f.Value, "initial") || hasKey(f.Value, "type") || hasKey(f.Value, "computed") {
			var w struct {
				Type     string          `json:"type"`
				Initial  json.RawMessage `json:"initial"`
				Computed json.RawMessage `json:"computed"`
			}
			if err := json.Unmarshal(f.Value, &w); err != nil {
				return fmt.Errorf("state %s: %w", f.Key, err)
			}
			field.Type = w.Type
			if field.Initial, err = decodeExprOrLiteral(w.Initial); err != nil {
				return fmt.Errorf("state %s initial: %w", f.Key, err)
			}
			if field.Computed, err = decodeOptionalExpr(w.Computed); err != nil {
				return fmt.Errorf("state %s computed: %w", f.Key, err)
			}
		} else {
			if field.Initial, err = decodeExprOrLiteral(f.Value); err != nil {
				return fmt.Errorf("state %s: %w", f.Key, err)
			}
		}
		out = append(out, field)
	}
	*d = out
	return nil
}

// Names returns the declared names in order.
func (d StateDefs) Names() []string {
	names := make([]string, len(d))
	for i, f := range d {
		names[i] = f.Name
	}
	return names
}

// Field returns the declaration with the given name.
func (d StateDefs) Field(name string) (StateField, bool) {
	for _, f := range d {
		if f.Name == name {
			return f, true
		}
	}
	return StateField{}, false
}

// Action is a named sequence of steps.
type Action struct {
	Name  string
	Steps []Step
}

// Actions maps action names to definitions.
type Actions map[string]*Action

// UnmarshalJSON decodes {name: {steps: [...]}} or {name: [...]}.
func (a *Actions) UnmarshalJSON(data []byte) error {
	fields, err := decodeOrderedObject(data)
	if err != nil {
		return err
	}
	out := make(Actions, len(fields))
	for _, f := range fields {
		var raws []json.RawMessage
		if hasKey(f.Value, "steps") {
			var w struct {
				Steps []json.RawMessage `json:"steps"`
			}
			if err := json.Unmarshal(f.Value, &w); err != nil {
				return fmt.Errorf("action %s: %w", f.Key, err)
			}
			raws = w.Steps
		} else if err := json.Unmarshal(f.Value, &raws); err != nil {
			return fmt.Errorf("action %s: expected steps: %w", f.Key, err)
		}
		steps, err := decodeStepList(raws)
		if err != nil {
			return fmt.Errorf("action %s: %w", f.Key, err)
		}
		out[f.Key] = &Action{Name: f.Key, Steps: steps}
	}
	*a = out
	return nil
}

// Names returns action names in no particular order.
func (a Actions) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	return names
}

// programWire is the JSON shape of a Program.
type programWire struct {
	Version      string          `json:"version"`
	State        json.RawMessage `json:"state"`
	Actions      json.RawMessage `json:"actions"`
	View         json.RawMessage `json:"view"`
	ImportData   map[string]any  `json:"importData"`
	Styles       map[string]any  `json:"styles"`
	Route        map[string]any  `json:"route"`
	Lifecycle    Lifecycle       `json:"lifecycle"`
	LocalState   json.RawMessage `json:"localState"`
	LocalActions json.RawMessage `json:"localActions"`
}

// UnmarshalJSON decodes a program.
func (p *Program) UnmarshalJSON(data []byte) error {
	var w programWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode program: %w", err)
	}

	prog := Program{
		Version:    w.Version,
		ImportData: w.ImportData,
		Styles:     w.Styles,
		Route:      w.Route,
		Lifecycle:  w.Lifecycle,
	}
	if err := prog.State.UnmarshalJSON(w.State); err != nil {
		return fmt.Errorf("program state: %w", err)
	}
	if err := prog.Actions.UnmarshalJSON(w.Actions); err != nil {
		return fmt.Errorf("program actions: %w", err)
	}
	if err := prog.LocalState.UnmarshalJSON(w.LocalState); err != nil {
		return fmt.Errorf("program localState: %w", err)
	}
	if err := prog.LocalActions.UnmarshalJSON(w.LocalActions); err != nil {
		return fmt.Errorf("program localActions: %w", err)
	}
	if isNullRaw(w.View) {
		return fmt.Errorf("program view is required")
	}
	view, err := DecodeNode(w.View)
	if err != nil {
		return fmt.Errorf("program view: %w", err)
	}
	prog.View = view

	*p = prog
	return nil
}

// DecodeProgram decodes a program from JSON.
func DecodeProgram(data []byte) (*Program, error) {
	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Islands returns every island node in the view, in document order.
func (p *Program) Islands() []*Island {
	var out []*Island
	Walk(p.View, func(n Node) bool {
		if isl, ok := n.(*Island); ok {
			out = append(out, isl)
		}
		return true
	})
	return out
}
