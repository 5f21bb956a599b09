package ir

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ExprKind is the "expr" tag of a compiled expression.
type ExprKind string

const (
	ExprLit    ExprKind = "lit"
	ExprState  ExprKind = "state"
	ExprLocal  ExprKind = "local"
	ExprParam  ExprKind = "param"
	ExprImport ExprKind = "import"
	ExprVar    ExprKind = "var"
	ExprGet    ExprKind = "get"
	ExprBinary ExprKind = "bin"
	ExprNot    ExprKind = "not"
	ExprCond   ExprKind = "cond"
	ExprConcat ExprKind = "concat"
	ExprArray  ExprKind = "array"
	ExprObject ExprKind = "object"
	ExprCall   ExprKind = "call"
	ExprLambda ExprKind = "lambda"
	ExprStyle  ExprKind = "style"
	ExprRoute  ExprKind = "route"
	ExprDomRef ExprKind = "ref"
)

// ErrUnknownExprKind is returned when an "expr" tag is not recognized.
var ErrUnknownExprKind = errors.New("unknown expression kind")

// Expr is a sealed interface over the compiled expression variants.
// Only the types in this file implement it.
type Expr interface {
	Kind() ExprKind
	irExpr()
}

// Lit is a literal JSON value.
type Lit struct {
	Value any
}

// StateRef reads a state cell through the scope chain, innermost first.
type StateRef struct {
	Name string
	Path string
}

// LocalRef reads a field of the enclosing local state scopes only.
type LocalRef struct {
	Name string
	Path string
}

// ParamRef reads a component parameter. Parameters are bound to
// expressions evaluated in the same context.
type ParamRef struct {
	Name string
	Path string
}

// ImportRef reads import-time static data.
type ImportRef struct {
	Name string
	Path string
}

// VarRef reads a loop-local variable (item alias, index alias, payload).
type VarRef struct {
	Name string
	Path string
}

// Get reads a dotted path from the value of Base.
type Get struct {
	Base Expr
	Path string
}

// Binary applies an arithmetic, comparison or logical operator.
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

// Not negates the truthiness of its operand.
type Not struct {
	Operand Expr
}

// Cond evaluates If and then exactly one of Then or Else.
type Cond struct {
	If   Expr
	Then Expr
	Else Expr // optional
}

// Concat joins the string forms of its items.
type Concat struct {
	Items []Expr
}

// ArrayLit builds an array.
type ArrayLit struct {
	Items []Expr
}

// ObjectProp is one property of an ObjectLit, in declaration order.
type ObjectProp struct {
	Key   string
	Value Expr
}

// ObjectLit builds an object.
type ObjectLit struct {
	Props []ObjectProp
}

// Call invokes a whitelisted method. Target selects the method family
// ("array", "string", "Math", "Date", "Object", "JSON"); Receiver is the
// value the method operates on for array and string methods.
type Call struct {
	Target   string
	Method   string
	Receiver Expr
	Args     []Expr
}

// Lambda is a closure passed to array methods such as map or filter.
type Lambda struct {
	Params []string
	Body   Expr
}

// StyleRef looks up a named style preset.
type StyleRef struct {
	Name    string
	Variant Expr // optional
}

// RouteRef reads the current route, optionally at a dotted path.
type RouteRef struct {
	Path string
}

// DomRef reads a named DOM ref.
type DomRef struct {
	Name string
}

func (*Lit) Kind() ExprKind       { return ExprLit }
func (*StateRef) Kind() ExprKind  { return ExprState }
func (*LocalRef) Kind() ExprKind  { return ExprLocal }
func (*ParamRef) Kind() ExprKind  { return ExprParam }
func (*ImportRef) Kind() ExprKind { return ExprImport }
func (*VarRef) Kind() ExprKind    { return ExprVar }
func (*Get) Kind() ExprKind       { return ExprGet }
func (*Binary) Kind() ExprKind    { return ExprBinary }
func (*Not) Kind() ExprKind       { return ExprNot }
func (*Cond) Kind() ExprKind      { return ExprCond }
func (*Concat) Kind() ExprKind    { return ExprConcat }
func (*ArrayLit) Kind() ExprKind  { return ExprArray }
func (*ObjectLit) Kind() ExprKind { return ExprObject }
func (*Call) Kind() ExprKind      { return ExprCall }
func (*Lambda) Kind() ExprKind    { return ExprLambda }
func (*StyleRef) Kind() ExprKind  { return ExprStyle }
func (*RouteRef) Kind() ExprKind  { return ExprRoute }
func (*DomRef) Kind() ExprKind    { return ExprDomRef }

func (*Lit) irExpr()       {}
func (*StateRef) irExpr()  {}
func (*LocalRef) irExpr()  {}
func (*ParamRef) irExpr()  {}
func (*ImportRef) irExpr() {}
func (*VarRef) irExpr()    {}
func (*Get) irExpr()       {}
func (*Binary) irExpr()    {}
func (*Not) irExpr()       {}
func (*Cond) irExpr()      {}
func (*Concat) irExpr()    {}
func (*ArrayLit) irExpr()  {}
func (*ObjectLit) irExpr() {}
func (*Call) irExpr()      {}
func (*Lambda) irExpr()    {}
func (*StyleRef) irExpr()  {}
func (*RouteRef) irExpr()  {}
func (*DomRef) irExpr()    {}

// exprWire carries every field any expression variant may use.
type exprWire struct {
	Expr     ExprKind          `json:"expr"`
	Value    json.RawMessage   `json:"value"`
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	Base     json.RawMessage   `json:"base"`
	Op       string            `json:"op"`
	Left     json.RawMessage   `json:"left"`
	Right    json.RawMessage   `json:"right"`
	Operand  json.RawMessage   `json:"operand"`
	If       json.RawMessage   `json:"if"`
	Then     json.RawMessage   `json:"then"`
	Else     json.RawMessage   `json:"else"`
	Items    []json.RawMessage `json:"items"`
	Props    json.RawMessage   `json:"props"`
	Target   string            `json:"target"`
	Method   string            `json:"method"`
	Receiver json.RawMessage   `json:"receiver"`
	Args     []json.RawMessage `json:"args"`
	Params   []string          `json:"params"`
	Body     json.RawMessage   `json:"body"`
	Variant  json.RawMessage   `json:"variant"`
}

// DecodeExpr decodes a tagged expression object.
func DecodeExpr(data []byte) (Expr, error) {
	if isNullRaw(data) {
		return nil, fmt.Errorf("expression is null")
	}

	var w exprWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode expression: %w", err)
	}

	switch w.Expr {
	case ExprLit:
		v, err := DecodeValue(w.Value)
		if err != nil {
			return nil, fmt.Errorf("lit: %w", err)
		}
		return &Lit{Value: v}, nil
	case ExprState:
		return &StateRef{Name: w.Name, Path: w.Path}, nil
	case ExprLocal:
		return &LocalRef{Name: w.Name, Path: w.Path}, nil
	case ExprParam:
		return &ParamRef{Name: w.Name, Path: w.Path}, nil
	case ExprImport:
		return &ImportRef{Name: w.Name, Path: w.Path}, nil
	case ExprVar:
		return &VarRef{Name: w.Name, Path: w.Path}, nil
	case ExprGet:
		base, err := DecodeExpr(w.Base)
		if err != nil {
			return nil, fmt.Errorf("get.base: %w", err)
		}
		return &Get{Base: base, Path: w.Path}, nil
	case ExprBinary:
		left, err := DecodeExpr(w.Left)
		if err != nil {
			return nil, fmt.Errorf("bin.left: %w", err)
		}
		right, err := DecodeExpr(w.Right)
		if err != nil {
			return nil, fmt.Errorf("bin.right: %w", err)
		}
		return &Binary{Op: w.Op, Left: left, Right: right}, nil
	case ExprNot:
		operand, err := DecodeExpr(w.Operand)
		if err != nil {
			return nil, fmt.Errorf("not.operand: %w", err)
		}
		return &Not{Operand: operand}, nil
	case ExprCond:
		cond := &Cond{}
		var err error
		if cond.If, err = DecodeExpr(w.If); err != nil {
			return nil, fmt.Errorf("cond.if: %w", err)
		}
		if cond.Then, err = DecodeExpr(w.Then); err != nil {
			return nil, fmt.Errorf("cond.then: %w", err)
		}
		if cond.Else, err = decodeOptionalExpr(w.Else); err != nil {
			return nil, fmt.Errorf("cond.else: %w", err)
		}
		return cond, nil
	case ExprConcat:
		items, err := decodeExprList(w.Items)
		if err != nil {
			return nil, fmt.Errorf("concat: %w", err)
		}
		return &Concat{Items: items}, nil
	case ExprArray:
		items, err := decodeExprList(w.Items)
		if err != nil {
			return nil, fmt.Errorf("array: %w", err)
		}
		return &ArrayLit{Items: items}, nil
	case ExprObject:
		fields, err := decodeOrderedObject(w.Props)
		if err != nil {
			return nil, fmt.Errorf("object.props: %w", err)
		}
		obj := &ObjectLit{Props: make([]ObjectProp, 0, len(fields))}
		for _, f := range fields {
			v, err := DecodeExpr(f.Value)
			if err != nil {
				return nil, fmt.Errorf("object.props.%s: %w", f.Key, err)
			}
			obj.Props = append(obj.Props, ObjectProp{Key: f.Key, Value: v})
		}
		return obj, nil
	case ExprCall:
		receiver, err := decodeOptionalExpr(w.Receiver)
		if err != nil {
			return nil, fmt.Errorf("call.receiver: %w", err)
		}
		args, err := decodeExprList(w.Args)
		if err != nil {
			return nil, fmt.Errorf("call.args: %w", err)
		}
		return &Call{Target: w.Target, Method: w.Method, Receiver: receiver, Args: args}, nil
	case ExprLambda:
		body, err := DecodeExpr(w.Body)
		if err != nil {
			return nil, fmt.Errorf("lambda.body: %w", err)
		}
		return &Lambda{Params: w.Params, Body: body}, nil
	case ExprStyle:
		variant, err := decodeOptionalExpr(w.Variant)
		if err != nil {
			return nil, fmt.Errorf("style.variant: %w", err)
		}
		return &StyleRef{Name: w.Name, Variant: variant}, nil
	case ExprRoute:
		return &RouteRef{Path: w.Path}, nil
	case ExprDomRef:
		return &DomRef{Name: w.Name}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExprKind, w.Expr)
	}
}

// decodeOptionalExpr decodes an expression that may be absent.
func decodeOptionalExpr(data []byte) (Expr, error) {
	if isNullRaw(data) {
		return nil, nil
	}
	return DecodeExpr(data)
}

// decodeExprOrLiteral accepts either a tagged expression or a bare JSON
// value, which is wrapped in a Lit.
func decodeExprOrLiteral(data []byte) (Expr, error) {
	if isNullRaw(data) {
		return nil, nil
	}
	if hasKey(data, "expr") {
		return DecodeExpr(data)
	}
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}
	return &Lit{Value: v}, nil
}

func decodeExprList(raws []json.RawMessage) ([]Expr, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]Expr, 0, len(raws))
	for i, raw := range raws {
		e, err := DecodeExpr(raw)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}
