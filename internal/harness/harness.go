package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/compiler"
	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/engine"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/island"
	"github.com/roach88/islet/internal/store"
	"github.com/roach88/islet/internal/testutil"
)

// settleTimeout bounds a settle step.
const settleTimeout = 5 * time.Second

// Harness is the scenario execution context.
// It runs one scenario on a fresh window with virtual time.
type Harness struct {
	scenario  *Scenario
	program   *ir.Program
	app       *engine.App
	window    *dom.Window
	container *html.Node
	store     *store.Store
	logger    *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load the program and the server markup (or render it)
// 2. Open a fresh in-memory store for storage steps
// 3. Attach the app in the scenario's mode
// 4. Execute steps, flushing the event loop after each
// 5. Evaluate assertions against the final document and state
//
// A returned error means the scenario could not be set up. Step and
// assertion failures are reported in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		scenario: scenario,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	program, err := compiler.LoadFile(scenario.ProgramPath())
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	h.program = program

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()
	h.store = st

	if err := h.attach(ctx); err != nil {
		return nil, err
	}
	defer h.window.Close()
	defer h.app.Destroy()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Kind(), err))
		}
		h.app.Flush()
		result.addTrace(h.window.Clock().Next(), step.Kind(), stepTarget(step))

		h.logger.Debug("step completed",
			"scenario", scenario.Name,
			"step", i,
			"kind", step.Kind(),
		)
	}

	h.snapshot(result)
	for _, msg := range EvaluateAssertions(h.container, h.app, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// attach builds the window and the app.
func (h *Harness) attach(ctx context.Context) error {
	s := h.scenario

	markup := ""
	switch {
	case s.Mode == ModeCreate:
	case s.HTML != "":
		data, err := os.ReadFile(s.HTMLPath())
		if err != nil {
			return fmt.Errorf("read html: %w", err)
		}
		markup = string(data)
	default:
		out, err := engine.RenderToString(h.program, h.appOptions()...)
		if err != nil {
			return fmt.Errorf("render program: %w", err)
		}
		markup = out
	}

	container, err := dom.ParseContainer(markup)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	h.container = container

	bucket, err := h.store.Bucket(ctx, s.Name)
	if err != nil {
		return err
	}
	wopts := []dom.WindowOption{dom.WithLogger(h.logger), dom.WithStorage(bucket)}
	if s.Window.Idle != nil && !*s.Window.Idle {
		wopts = append(wopts, dom.WithoutIdleCallback())
	}
	if s.Window.Location != "" {
		wopts = append(wopts, dom.WithLocation(s.Window.Location))
	}
	for query, matches := range s.Window.Media {
		wopts = append(wopts, dom.WithMedia(query, matches))
	}
	h.window = dom.NewWindow(container, wopts...)

	opts := append(h.appOptions(), engine.WithWindow(h.window))
	switch s.Mode {
	case ModeCreate:
		h.app, err = engine.CreateApp(h.program, container, opts...)
	case ModeIslands:
		h.app, err = engine.HydrateIslands(h.program, container, opts...)
	default:
		h.app, err = engine.HydrateApp(h.program, container, opts...)
	}
	if err != nil {
		h.window.Close()
		return fmt.Errorf("%s: %w", s.Mode, err)
	}
	h.app.Flush()
	return nil
}

func (h *Harness) appOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithLogger(h.logger),
		engine.WithIDGenerator(testutil.NewSequentialIDs(h.scenario.Name)),
	}
	if h.scenario.Imports != nil {
		opts = append(opts, engine.WithImports(ir.Normalize(h.scenario.Imports).(map[string]any)))
	}
	return opts
}

// errNoMatch is returned when a step's selector matches nothing.
var errNoMatch = errors.New("no element matches")

func (h *Harness) find(selector string) (*html.Node, error) {
	el := dom.Select(h.container, selector)
	if el == nil {
		return nil, fmt.Errorf("%w %q", errNoMatch, selector)
	}
	return el, nil
}

// execute runs one step.
func (h *Harness) execute(ctx context.Context, step Step) error {
	w := h.window
	switch step.Kind() {
	case StepClick, StepHover, StepFocus:
		el, err := h.find(stepTarget(step))
		if err != nil {
			return err
		}
		switch step.Kind() {
		case StepClick:
			w.Click(el)
		case StepHover:
			w.Hover(el)
		default:
			w.FocusIn(el)
		}
	case StepInput:
		el, err := h.find(step.Input.Target)
		if err != nil {
			return err
		}
		w.Input(el, step.Input.Value)
	case StepSetState:
		h.app.SetState(step.SetState.Name, step.SetState.Value)
	case StepDispatch:
		h.app.Dispatch(step.Dispatch.Action, ir.Normalize(step.Dispatch.Payload))
	case StepNavigate:
		h.app.Navigate(step.Navigate)
	case StepAdvance:
		w.Advance(time.Duration(step.Advance) * time.Millisecond)
	case StepIdle:
		w.RunIdle()
	case StepIntersect:
		el, err := h.find(step.Intersect.Target)
		if err != nil {
			return err
		}
		ratio := 1.0
		if step.Intersect.Ratio != nil {
			ratio = *step.Intersect.Ratio
		}
		w.Intersect(el, ratio)
	case StepMedia:
		w.SetMedia(step.Media.Query, step.Media.Matches)
	case StepFlush:
		w.Flush()
	case StepSettle:
		ctx, cancel := context.WithTimeout(ctx, settleTimeout)
		defer cancel()
		return h.app.Settle(ctx)
	case StepDestroy:
		h.app.Destroy()
	default:
		return fmt.Errorf("empty step")
	}
	return nil
}

func stepTarget(step Step) string {
	switch {
	case step.Click != "":
		return step.Click
	case step.Hover != "":
		return step.Hover
	case step.Focus != "":
		return step.Focus
	case step.Input != nil:
		return step.Input.Target
	case step.SetState != nil:
		return step.SetState.Name
	case step.Dispatch != nil:
		return step.Dispatch.Action
	case step.Navigate != "":
		return step.Navigate
	case step.Intersect != nil:
		return step.Intersect.Target
	case step.Media != nil:
		return step.Media.Query
	}
	return ""
}

// snapshot copies the final document and app state into result.
func (h *Harness) snapshot(result *Result) {
	result.HTML = dom.InnerHTML(h.container)
	result.State = h.app.Snapshot()
	for _, el := range dom.SelectAll(h.container, "["+island.AttrHydrated+"]") {
		id, _ := dom.GetAttr(el, island.AttrID)
		result.Hydrated = append(result.Hydrated, id)
	}
	result.RuntimeErrors = runtimeErrorCodes(h.app)
}

func runtimeErrorCodes(a *engine.App) []string {
	var codes []string
	for _, err := range a.Errors() {
		var re *engine.RuntimeError
		if errors.As(err, &re) {
			codes = append(codes, string(re.Code))
		} else {
			codes = append(codes, err.Error())
		}
	}
	return codes
}
