package ir

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StepKind is the "do" tag of an action step.
type StepKind string

const (
	StepSet      StepKind = "set"
	StepUpdate   StepKind = "update"
	StepSetPath  StepKind = "setPath"
	StepCall     StepKind = "call"
	StepFetch    StepKind = "fetch"
	StepStorage  StepKind = "storage"
	StepNavigate StepKind = "navigate"
)

// Update operations accepted by UpdateStep.
const (
	OpIncrement = "increment"
	OpDecrement = "decrement"
	OpToggle    = "toggle"
	OpPush      = "push"
	OpPop       = "pop"
	OpRemove    = "remove"
	OpMerge     = "merge"
	OpClear     = "clear"
)

// Storage operations accepted by StorageStep.
const (
	StorageGet    = "get"
	StorageSet    = "set"
	StorageRemove = "remove"
)

// ErrUnknownStepKind is returned when a "do" tag is not recognized.
var ErrUnknownStepKind = errors.New("unknown step kind")

// Step is a sealed interface over action step variants.
type Step interface {
	Kind() StepKind
	irStep()
}

// SetStep assigns Value to the state cell Target.
type SetStep struct {
	Target string
	Value  Expr
}

// UpdateStep applies Op to the state cell Target.
type UpdateStep struct {
	Target string
	Op     string
	Value  Expr // operand for increment/decrement/push/remove/merge
}

// SetPathStep writes Value at Path inside the state cell Target.
type SetPathStep struct {
	Target string
	Path   Expr
	Value  Expr
}

// CallStep dispatches another action.
type CallStep struct {
	Action  string
	Payload Expr
}

// FetchStep performs an HTTP request through the host.
type FetchStep struct {
	URL       Expr
	Method    string
	Body      Expr
	Result    string // state cell receiving the decoded response
	OnSuccess []Step
	OnError   []Step
}

// StorageStep reads or writes host key/value storage.
type StorageStep struct {
	Op      string
	Key     Expr
	Value   Expr
	Result  string
	OnError []Step
}

// NavigateStep changes the current route.
type NavigateStep struct {
	To Expr
}

func (*SetStep) Kind() StepKind      { return StepSet }
func (*UpdateStep) Kind() StepKind   { return StepUpdate }
func (*SetPathStep) Kind() StepKind  { return StepSetPath }
func (*CallStep) Kind() StepKind     { return StepCall }
func (*FetchStep) Kind() StepKind    { return StepFetch }
func (*StorageStep) Kind() StepKind  { return StepStorage }
func (*NavigateStep) Kind() StepKind { return StepNavigate }

func (*SetStep) irStep()      {}
func (*UpdateStep) irStep()   {}
func (*SetPathStep) irStep()  {}
func (*CallStep) irStep()     {}
func (*FetchStep) irStep()    {}
func (*StorageStep) irStep()  {}
func (*NavigateStep) irStep() {}

type stepWire struct {
	Do        StepKind          `json:"do"`
	Target    string            `json:"target"`
	Value     json.RawMessage   `json:"value"`
	Op        string            `json:"op"`
	Path      json.RawMessage   `json:"path"`
	Action    string            `json:"action"`
	Payload   json.RawMessage   `json:"payload"`
	URL       json.RawMessage   `json:"url"`
	Method    string            `json:"method"`
	Body      json.RawMessage   `json:"body"`
	Result    string            `json:"result"`
	OnSuccess []json.RawMessage `json:"onSuccess"`
	OnError   []json.RawMessage `json:"onError"`
	Key       json.RawMessage   `json:"key"`
	To        json.RawMessage   `json:"to"`
}

// DecodeStep decodes a tagged action step.
func DecodeStep(data []byte) (Step, error) {
	var w stepWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode step: %w", err)
	}

	switch w.Do {
	case StepSet:
		if w.Target == "" {
			return nil, fmt.Errorf("set: target is required")
		}
		v, err := decodeExprOrLiteral(w.Value)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", w.Target, err)
		}
		return &SetStep{Target: w.Target, Value: v}, nil

	case StepUpdate:
		if w.Target == "" {
			return nil, fmt.Errorf("update: target is required")
		}
		v, err := decodeExprOrLiteral(w.Value)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", w.Target, err)
		}
		return &UpdateStep{Target: w.Target, Op: w.Op, Value: v}, nil

	case StepSetPath:
		if w.Target == "" {
			return nil, fmt.Errorf("setPath: target is required")
		}
		path, err := decodeExprOrLiteral(w.Path)
		if err != nil {
			return nil, fmt.Errorf("setPath %s path: %w", w.Target, err)
		}
		v, err := decodeExprOrLiteral(w.Value)
		if err != nil {
			return nil, fmt.Errorf("setPath %s value: %w", w.Target, err)
		}
		return &SetPathStep{Target: w.Target, Path: path, Value: v}, nil

	case StepCall:
		if w.Action == "" {
			return nil, fmt.Errorf("call: action is required")
		}
		payload, err := decodeOptionalExpr(w.Payload)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", w.Action, err)
		}
		return &CallStep{Action: w.Action, Payload: payload}, nil

	case StepFetch:
		url, err := decodeExprOrLiteral(w.URL)
		if err != nil || url == nil {
			return nil, fmt.Errorf("fetch: url is required")
		}
		body, err := decodeOptionalExpr(w.Body)
		if err != nil {
			return nil, fmt.Errorf("fetch body: %w", err)
		}
		onSuccess, err := decodeStepList(w.OnSuccess)
		if err != nil {
			return nil, fmt.Errorf("fetch onSuccess: %w", err)
		}
		onError, err := decodeStepList(w.OnError)
		if err != nil {
			return nil, fmt.Errorf("fetch onError: %w", err)
		}
		return &FetchStep{URL: url, Method: w.Method, Body: body, Result: w.Result, OnSuccess: onSuccess, OnError: onError}, nil

	case StepStorage:
		key, err := decodeExprOrLiteral(w.Key)
		if err != nil || key == nil {
			return nil, fmt.Errorf("storage: key is required")
		}
		v, err := decodeExprOrLiteral(w.Value)
		if err != nil {
			return nil, fmt.Errorf("storage value: %w", err)
		}
		onError, err := decodeStepList(w.OnError)
		if err != nil {
			return nil, fmt.Errorf("storage onError: %w", err)
		}
		switch w.Op {
		case StorageGet, StorageSet, StorageRemove:
		default:
			return nil, fmt.Errorf("storage: unknown op %q", w.Op)
		}
		return &StorageStep{Op: w.Op, Key: key, Value: v, Result: w.Result, OnError: onError}, nil

	case StepNavigate:
		to, err := decodeExprOrLiteral(w.To)
		if err != nil || to == nil {
			return nil, fmt.Errorf("navigate: to is required")
		}
		return &NavigateStep{To: to}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStepKind, w.Do)
	}
}

func decodeStepList(raws []json.RawMessage) ([]Step, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]Step, 0, len(raws))
	for i, raw := range raws {
		s, err := DecodeStep(raw)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
