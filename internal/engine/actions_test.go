package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/ir"
	. "github.com/roach88/islet/internal/testutil"
)

func TestDispatch_UpdateOps(t *testing.T) {
	gt := &ir.Lambda{Params: []string{"x"}, Body: Bin(">", Var("x"), Lit(1))}

	tests := []struct {
		name    string
		initial any
		step    *ir.UpdateStep
		want    any
	}{
		{"increment", 1, &ir.UpdateStep{Op: ir.OpIncrement}, 2.0},
		{"increment undefined", nil, &ir.UpdateStep{Op: ir.OpIncrement}, 1.0},
		{"increment by", 1, &ir.UpdateStep{Op: ir.OpIncrement, Value: Lit(5)}, 6.0},
		{"decrement", 1, &ir.UpdateStep{Op: ir.OpDecrement}, 0.0},
		{"toggle", false, &ir.UpdateStep{Op: ir.OpToggle}, true},
		{"push", []any{1}, &ir.UpdateStep{Op: ir.OpPush, Value: Lit(2)}, []any{1.0, 2.0}},
		{"push onto undefined", nil, &ir.UpdateStep{Op: ir.OpPush, Value: Lit("a")}, []any{"a"}},
		{"pop", []any{1, 2}, &ir.UpdateStep{Op: ir.OpPop}, []any{1.0}},
		{"remove value", []any{1, 2, 1}, &ir.UpdateStep{Op: ir.OpRemove, Value: Lit(1)}, []any{2.0}},
		{"remove where", []any{1, 2, 3}, &ir.UpdateStep{Op: ir.OpRemove, Value: gt}, []any{1.0}},
		{"merge", map[string]any{"a": 1}, &ir.UpdateStep{Op: ir.OpMerge, Value: Lit(map[string]any{"b": 2})}, map[string]any{"a": 1.0, "b": 2.0}},
		{"clear list", []any{1}, &ir.UpdateStep{Op: ir.OpClear}, []any{}},
		{"clear string", "x", &ir.UpdateStep{Op: ir.OpClear}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.step.Target = "v"
			p := newProgram(StaticText(""))
			p.State = Fields("v", tt.initial)
			p.Actions = Actions(Action("go", tt.step))

			a, _ := createApp(t, p)
			a.Dispatch("go", nil)
			if diff := cmp.Diff(tt.want, a.GetState("v")); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDispatch_SetPathAndPayload(t *testing.T) {
	p := newProgram(StaticText(""))
	p.State = Fields("user", map[string]any{"name": "a", "tags": []any{"x"}})
	p.Actions = Actions(
		Action("rename", &ir.SetPathStep{Target: "user", Path: Lit("name"), Value: Var("payload")}),
		Action("retag", &ir.SetPathStep{Target: "user", Path: Lit([]any{"tags", 0}), Value: Lit("y")}),
	)

	a, _ := createApp(t, p)
	a.Dispatch("rename", "b")
	a.Dispatch("retag", nil)
	assert.Equal(t, map[string]any{"name": "b", "tags": []any{"y"}}, a.GetState("user"))
}

func TestDispatch_SetPathRejectsHugeIndex(t *testing.T) {
	p := newProgram(StaticText(""))
	p.State = Fields("user", map[string]any{"tags": []any{"x"}})
	p.Actions = Actions(
		Action("grow", &ir.SetPathStep{Target: "user", Path: Lit("tags.100000000000000"), Value: Lit("y")}),
	)

	a, _ := createApp(t, p)
	assert.NotPanics(t, func() { a.Dispatch("grow", nil) })
	assert.Equal(t, map[string]any{"tags": []any{"x"}}, a.GetState("user"))
}

func TestDispatch_RecordsPanicInsteadOfPropagating(t *testing.T) {
	p := newProgram(StaticText(""))
	p.State = Fields("n", 0)
	p.Actions = Actions(Action("inc", Increment("n")))

	a, _ := createApp(t, p)
	a.Subscribe("n", func(any) { panic("boom") })

	assert.NotPanics(t, func() { a.Dispatch("inc", nil) })
	require.Equal(t, []RuntimeErrorCode{ErrCodeLifecycleHook}, errorCodes(a))
	assert.Contains(t, a.Errors()[0].Error(), "dispatch failed: panic: boom")
}

func TestDispatch_CallStep(t *testing.T) {
	p := newProgram(StaticText(""))
	p.State = Fields("n", 0)
	p.Actions = Actions(
		Action("outer", &ir.CallStep{Action: "add", Payload: Lit(3)}),
		Action("add", &ir.UpdateStep{Target: "n", Op: ir.OpIncrement, Value: Var("payload")}),
		Action("loop", &ir.CallStep{Action: "loop"}),
	)

	a, _ := createApp(t, p)
	a.Dispatch("outer", nil)
	assert.Equal(t, 3.0, a.GetState("n"))

	a.Dispatch("loop", nil)
	assert.Equal(t, []RuntimeErrorCode{ErrCodeLifecycleHook}, errorCodes(a))
}

func TestDispatch_UnknownActionSuggests(t *testing.T) {
	p := newProgram(El("button", Props("onClick", On("click", "incremnt"))))
	p.State = Fields("count", 0)
	p.Actions = Actions(Action("increment", Increment("count")))

	a, container := createApp(t, p)
	a.Window().Click(mustFind(t, container, dom.ByTag("button")))

	errs := a.Errors()
	require.Len(t, errs, 1)
	assert.True(t, IsUnknownActionError(errs[0]))
	assert.Contains(t, errs[0].Error(), `did you mean "increment"?`)
	assert.Equal(t, 0.0, a.GetState("count"))
}

func TestDispatch_HandlerPayloadSeesEvent(t *testing.T) {
	p := newProgram(El("input", Props("onInput", &ir.EventHandler{
		Event:   "input",
		Action:  "typed",
		Payload: VarPath("event", "value"),
	})))
	p.State = Fields("text", "")
	p.Actions = Actions(Action("typed", Set("text", Var("payload"))))

	a, container := createApp(t, p)
	a.Window().Input(mustFind(t, container, dom.ByTag("input")), "hello")
	assert.Equal(t, "hello", a.GetState("text"))
}

func TestDispatch_Fetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	var got *dom.Request
	fetcher := dom.FetcherFunc(func(_ context.Context, req *dom.Request) (*dom.Response, error) {
		got = req
		if req.URL == "/fail" {
			return nil, errors.New("connection refused")
		}
		return &dom.Response{Status: 200, Body: []byte(`{"n":5}`)}, nil
	})

	p := newProgram(StaticText(""))
	p.State = Fields("data", nil, "status", "idle", "err", nil)
	p.Actions = Actions(
		Action("load", &ir.FetchStep{
			URL:       Lit("/api"),
			Method:    "post",
			Body:      Lit(map[string]any{"q": 1}),
			Result:    "data",
			OnSuccess: []ir.Step{Set("status", Lit("done"))},
		}),
		Action("broken", &ir.FetchStep{
			URL:     Lit("/fail"),
			OnError: []ir.Step{Set("err", Var("error"))},
		}),
		Action("unhandled", &ir.FetchStep{URL: Lit("/fail")}),
	)

	container := dom.NewContainer()
	a, err := CreateApp(p, container, testOptions(WithFetcher(fetcher))...)
	require.NoError(t, err)
	defer a.Destroy()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.Dispatch("load", nil)
	assert.Equal(t, nil, a.GetState("data"))
	require.NoError(t, a.Settle(ctx))
	assert.Equal(t, map[string]any{"n": 5.0}, a.GetState("data"))
	assert.Equal(t, "done", a.GetState("status"))
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, `{"q":1}`, string(got.Body))

	a.Dispatch("broken", nil)
	require.NoError(t, a.Settle(ctx))
	assert.Equal(t, "connection refused", a.GetState("err"))
	assert.Empty(t, a.Errors())

	a.Dispatch("unhandled", nil)
	require.NoError(t, a.Settle(ctx))
	require.Len(t, a.Errors(), 1)
	assert.True(t, IsExternalCallError(a.Errors()[0]))
}

func TestDispatch_FetchAfterDestroyIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	fetcher := dom.FetcherFunc(func(_ context.Context, _ *dom.Request) (*dom.Response, error) {
		<-release
		return &dom.Response{Status: 200, Body: []byte(`1`)}, nil
	})

	p := newProgram(StaticText(""))
	p.State = Fields("data", nil)
	p.Actions = Actions(Action("load", &ir.FetchStep{URL: Lit("/x"), Result: "data"}))

	w := dom.NewWindow(nil, dom.WithFetcher(fetcher))
	a, err := CreateApp(p, dom.NewContainer(), testOptions(WithWindow(w))...)
	require.NoError(t, err)

	a.Dispatch("load", nil)
	a.Destroy()
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Settle(ctx))
	assert.Equal(t, nil, a.GetState("data"))
	w.Close()
}

func TestDispatch_Storage(t *testing.T) {
	storage := dom.NewMemoryStorage()
	p := newProgram(StaticText(""))
	p.State = Fields("prefs", map[string]any{"theme": "dark"}, "restored", nil, "err", nil)
	p.Actions = Actions(
		Action("save", &ir.StorageStep{Op: ir.StorageSet, Key: Lit("prefs"), Value: State("prefs")}),
		Action("load", &ir.StorageStep{Op: ir.StorageGet, Key: Lit("prefs"), Result: "restored"}),
		Action("drop", &ir.StorageStep{Op: ir.StorageRemove, Key: Lit("prefs")}),
		Action("save-failing", &ir.StorageStep{
			Op:      ir.StorageSet,
			Key:     Lit("k"),
			Value:   Lit(1),
			OnError: []ir.Step{Set("err", Var("error"))},
		}),
	)

	a, _ := createApp(t, p, WithStorage(storage))

	a.Dispatch("save", nil)
	assert.Equal(t, map[string]string{"prefs": `{"theme":"dark"}`}, storage.Items())

	a.Dispatch("load", nil)
	assert.Equal(t, map[string]any{"theme": "dark"}, a.GetState("restored"))

	a.Dispatch("drop", nil)
	a.Dispatch("load", nil)
	assert.Empty(t, storage.Items())
	assert.Nil(t, a.GetState("restored"))

	storage.Fail(errors.New("quota exceeded"))
	a.Dispatch("save-failing", nil)
	assert.Equal(t, "quota exceeded", a.GetState("err"))
}

func TestDispatch_Navigate(t *testing.T) {
	p := newProgram(StaticText(""))
	p.Actions = Actions(
		Action("go", &ir.NavigateStep{To: Lit("/next")}),
		Action("leave", Set("left", Var("payload"))),
	)
	p.State = Fields("left", nil)
	p.Lifecycle.OnRouteLeave = "leave"

	a, _ := createApp(t, p)
	a.Dispatch("go", nil)
	assert.Equal(t, "/next", a.Route()["path"])
	assert.Equal(t, "/", a.GetState("left"))
}

func TestSuggest(t *testing.T) {
	names := []string{"increment", "decrement", "reset"}
	assert.Equal(t, "increment", suggest("incremnt", names))
	assert.Equal(t, "reset", suggest("rest", names))
	assert.Equal(t, "", suggest("zzzzzzzz", names))
	assert.Equal(t, "", suggest("x", nil))
}
