package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeExprVariants(t *testing.T) {
	tests := []struct {
		name string
		json string
		kind ExprKind
	}{
		{"lit", `{"expr":"lit","value":3}`, ExprLit},
		{"state", `{"expr":"state","name":"count"}`, ExprState},
		{"local", `{"expr":"local","name":"open","path":"a.b"}`, ExprLocal},
		{"param", `{"expr":"param","name":"item"}`, ExprParam},
		{"import", `{"expr":"import","name":"posts"}`, ExprImport},
		{"var", `{"expr":"var","name":"item","path":"title"}`, ExprVar},
		{"get", `{"expr":"get","base":{"expr":"state","name":"u"},"path":"name"}`, ExprGet},
		{"bin", `{"expr":"bin","op":"+","left":{"expr":"lit","value":1},"right":{"expr":"lit","value":2}}`, ExprBinary},
		{"not", `{"expr":"not","operand":{"expr":"lit","value":true}}`, ExprNot},
		{"cond", `{"expr":"cond","if":{"expr":"lit","value":true},"then":{"expr":"lit","value":1}}`, ExprCond},
		{"concat", `{"expr":"concat","items":[{"expr":"lit","value":"a"}]}`, ExprConcat},
		{"array", `{"expr":"array","items":[]}`, ExprArray},
		{"object", `{"expr":"object","props":{"b":{"expr":"lit","value":1},"a":{"expr":"lit","value":2}}}`, ExprObject},
		{"call", `{"expr":"call","target":"Math","method":"max","args":[{"expr":"lit","value":1}]}`, ExprCall},
		{"lambda", `{"expr":"lambda","params":["x"],"body":{"expr":"var","name":"x"}}`, ExprLambda},
		{"style", `{"expr":"style","name":"button","variant":{"expr":"lit","value":"primary"}}`, ExprStyle},
		{"route", `{"expr":"route","path":"params.id"}`, ExprRoute},
		{"ref", `{"expr":"ref","name":"input"}`, ExprDomRef},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := DecodeExpr([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, e.Kind())
		})
	}
}

func TestDecodeExprObjectPreservesOrder(t *testing.T) {
	e, err := DecodeExpr([]byte(`{"expr":"object","props":{"z":{"expr":"lit","value":1},"a":{"expr":"lit","value":2}}}`))
	require.NoError(t, err)

	obj := e.(*ObjectLit)
	require.Len(t, obj.Props, 2)
	assert.Equal(t, "z", obj.Props[0].Key)
	assert.Equal(t, "a", obj.Props[1].Key)
}

func TestDecodeExprErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"unknown kind", `{"expr":"eval","code":"x"}`},
		{"null", `null`},
		{"bad nested", `{"expr":"not","operand":{"expr":"nope"}}`},
		{"not json", `{"expr":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeExpr([]byte(tt.json))
			assert.Error(t, err)
		})
	}

	_, err := DecodeExpr([]byte(`{"expr":"eval"}`))
	assert.True(t, errors.Is(err, ErrUnknownExprKind))
}

func TestDecodeNodeVariants(t *testing.T) {
	tests := []struct {
		name string
		json string
		kind NodeKind
	}{
		{"element", `{"kind":"element","tag":"div","children":[{"kind":"text","value":"hi"}]}`, NodeElement},
		{"text literal", `{"kind":"text","value":"hi"}`, NodeText},
		{"text expr", `{"kind":"text","value":{"expr":"state","name":"n"}}`, NodeText},
		{"if", `{"kind":"if","if":{"expr":"lit","value":true},"then":{"kind":"text","value":"y"}}`, NodeIf},
		{"each", `{"kind":"each","items":{"expr":"state","name":"xs"},"as":"x","body":{"kind":"text","value":"."}}`, NodeEach},
		{"local", `{"kind":"local","state":{"open":{"type":"boolean","initial":false}},"child":{"kind":"text","value":"."}}`, NodeLocal},
		{"island", `{"kind":"island","id":"i1","strategy":"idle","content":{"kind":"text","value":"."}}`, NodeIsland},
		{"markdown", `{"kind":"markdown","content":"# hi"}`, NodeMarkdown},
		{"code", `{"kind":"code","language":"go","content":"package x"}`, NodeCode},
		{"portal", `{"kind":"portal","target":"body","children":[]}`, NodePortal},
		{"slot", `{"kind":"slot","name":"main"}`, NodeSlot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := DecodeNode([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, n.Kind())
		})
	}
}

func TestDecodeNodeErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"unknown kind", `{"kind":"widget"}`},
		{"element without tag", `{"kind":"element"}`},
		{"island without id", `{"kind":"island","content":{"kind":"slot"}}`},
		{"if without then", `{"kind":"if","if":{"expr":"lit","value":true}}`},
		{"markdown non-string", `{"kind":"markdown","content":3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeNode([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestDecodePropsHandlers(t *testing.T) {
	n, err := DecodeNode([]byte(`{"kind":"element","tag":"button","props":{
		"class": "btn",
		"onClick": {"action": "increment"},
		"onMouseOver": {"action": "hover", "payload": {"expr": "lit", "value": 1}},
		"title": {"expr": "state", "name": "label"}
	}}`))
	require.NoError(t, err)

	el := n.(*Element)
	require.Len(t, el.Props, 4)

	assert.Equal(t, "class", el.Props[0].Name)
	assert.Equal(t, &Lit{Value: "btn"}, el.Props[0].Value)

	require.NotNil(t, el.Props[1].Handler)
	assert.Equal(t, "click", el.Props[1].Handler.Event)
	assert.Equal(t, "increment", el.Props[1].Handler.Action)

	require.NotNil(t, el.Props[2].Handler)
	assert.Equal(t, "mouseover", el.Props[2].Handler.Event)
	assert.NotNil(t, el.Props[2].Handler.Payload)

	assert.Nil(t, el.Props[3].Handler)
	assert.Equal(t, &StateRef{Name: "label"}, el.Props[3].Value)
}

func TestDecodeStepVariants(t *testing.T) {
	tests := []struct {
		name string
		json string
		kind StepKind
	}{
		{"set", `{"do":"set","target":"n","value":1}`, StepSet},
		{"update", `{"do":"update","target":"n","op":"increment"}`, StepUpdate},
		{"setPath", `{"do":"setPath","target":"u","path":"name","value":"x"}`, StepSetPath},
		{"call", `{"do":"call","action":"other"}`, StepCall},
		{"fetch", `{"do":"fetch","url":"/api","result":"data","onError":[{"do":"set","target":"err","value":{"expr":"var","name":"error"}}]}`, StepFetch},
		{"storage", `{"do":"storage","op":"get","key":"theme","result":"theme"}`, StepStorage},
		{"navigate", `{"do":"navigate","to":"/about"}`, StepNavigate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeStep([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, s.Kind())
		})
	}
}

func TestDecodeStepErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"unknown", `{"do":"exec"}`},
		{"set without target", `{"do":"set","value":1}`},
		{"storage bad op", `{"do":"storage","op":"clear","key":"k"}`},
		{"fetch without url", `{"do":"fetch"}`},
		{"navigate without to", `{"do":"navigate"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStep([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestDecodeProgram(t *testing.T) {
	p, err := DecodeProgram([]byte(`{
		"version": "1",
		"state": {
			"tripled": {"type": "number", "initial": {"expr": "bin", "op": "+", "left": {"expr": "state", "name": "doubled"}, "right": {"expr": "state", "name": "base"}}},
			"base": {"type": "number", "initial": 10},
			"doubled": {"type": "number", "initial": {"expr": "bin", "op": "*", "left": {"expr": "state", "name": "base"}, "right": {"expr": "lit", "value": 2}}},
			"title": "hello"
		},
		"actions": {
			"inc": {"steps": [{"do": "update", "target": "base", "op": "increment"}]},
			"reset": [{"do": "set", "target": "base", "value": 0}]
		},
		"view": {"kind": "island", "id": "c", "strategy": "load", "content": {"kind": "text", "value": "x"}},
		"importData": {"posts": [1, 2]},
		"lifecycle": {"onMount": "inc", "onUnmount": "reset"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"tripled", "base", "doubled", "title"}, p.State.Names())
	title, ok := p.State.Field("title")
	require.True(t, ok)
	assert.Equal(t, &Lit{Value: "hello"}, title.Initial)

	require.Contains(t, p.Actions, "inc")
	require.Contains(t, p.Actions, "reset")
	assert.Len(t, p.Actions["reset"].Steps, 1)
	assert.ElementsMatch(t, []string{"inc", "reset"}, p.Actions.Names())

	assert.Equal(t, "inc", p.Lifecycle.OnMount)
	assert.Equal(t, "reset", p.Lifecycle.OnUnmount)
	assert.Equal(t, []any{1.0, 2.0}, p.ImportData["posts"])

	islands := p.Islands()
	require.Len(t, islands, 1)
	assert.Equal(t, "c", islands[0].ID)
}

func TestDecodeProgramRequiresView(t *testing.T) {
	_, err := DecodeProgram([]byte(`{"version":"1","state":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "view is required")
}

func TestWalkStopsDescent(t *testing.T) {
	n, err := DecodeNode([]byte(`{"kind":"element","tag":"div","children":[
		{"kind":"island","id":"a","strategy":"load","content":{"kind":"element","tag":"span"}},
		{"kind":"text","value":"t"}
	]}`))
	require.NoError(t, err)

	var kinds []NodeKind
	Walk(n, func(n Node) bool {
		kinds = append(kinds, n.Kind())
		return n.Kind() != NodeIsland
	})
	assert.Equal(t, []NodeKind{NodeElement, NodeIsland, NodeText}, kinds)
}

func TestEventNameFromProp(t *testing.T) {
	assert.Equal(t, "click", EventNameFromProp("onClick"))
	assert.Equal(t, "mouseover", EventNameFromProp("onMouseOver"))
	assert.Equal(t, "input", EventNameFromProp("input"))
}

func TestSupportsVersion(t *testing.T) {
	assert.True(t, SupportsVersion(""))
	assert.True(t, SupportsVersion(IRVersion))
	assert.False(t, SupportsVersion("99"))
}
