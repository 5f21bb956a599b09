package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/expr"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/state"
)

// signalRoute is the key bumped on navigation in the app's signal store.
const signalRoute = "route"

// ErrNilProgram is returned when an app is started without a program.
var ErrNilProgram = errors.New("program is nil")

// ErrNilContainer is returned when an app is started without a container.
var ErrNilContainer = errors.New("container is nil")

// App is a mounted program.
//
// An App is driven from one goroutine: the one that calls its methods and
// drives its window.
type App struct {
	id         string
	program    *ir.Program
	window     *dom.Window
	ownsWindow bool
	container  *html.Node
	logger     *slog.Logger
	ids        IDGenerator

	global  *state.Scope
	ctx     *expr.Context
	root    *owner
	arena   *arena
	refs    map[string]any
	route   map[string]any
	signals *state.Store

	errs       []error
	islands    []IslandInstance
	prefetched map[string]bool
	claimed    map[*html.Node]bool

	// deferred holds work that must wait until the view is attached.
	deferred  []func()
	rendering bool

	mounted   bool
	destroyed bool
	ssr       bool
}

func newApp(program *ir.Program, container *html.Node, opts []Option) (*App, error) {
	if program == nil {
		return nil, ErrNilProgram
	}
	if container == nil {
		return nil, ErrNilContainer
	}
	cfg := newConfig(opts)

	a := &App{
		program:    program,
		container:  container,
		logger:     cfg.logger,
		ids:        cfg.ids,
		root:       newOwner(),
		arena:      newArena(),
		refs:       make(map[string]any),
		signals:    state.NewStore(),
		prefetched: make(map[string]bool),
		claimed:    make(map[*html.Node]bool),
		ssr:        cfg.ssr,
	}
	a.id = a.ids.Generate()

	a.window = cfg.window
	if a.window == nil {
		wopts := []dom.WindowOption{dom.WithLogger(cfg.logger)}
		if cfg.storage != nil {
			wopts = append(wopts, dom.WithStorage(cfg.storage))
		}
		if cfg.fetcher != nil {
			wopts = append(wopts, dom.WithFetcher(cfg.fetcher))
		}
		if path, ok := program.Route["path"].(string); ok {
			wopts = append(wopts, dom.WithLocation(path))
		}
		a.window = dom.NewWindow(documentOf(container), wopts...)
		a.ownsWindow = true
	}

	now := cfg.now
	if now == nil {
		now = a.window.Now
	}
	imports := program.ImportData
	if cfg.imports != nil {
		imports = cfg.imports
	}
	a.route = maps.Clone(program.Route)
	if a.route == nil {
		a.route = make(map[string]any)
	}
	if _, ok := a.route["path"]; !ok {
		a.route["path"] = a.window.Location()
	}
	a.signals.Set(signalRoute, 0.0)

	a.global = state.NewGlobal(state.NewStore(), program.Actions)
	a.ctx = &expr.Context{
		State:   a.global,
		Imports: imports,
		Styles:  program.Styles,
		Refs:    a.refs,
		Route:   a.route,
		Now:     now,
		Logger:  cfg.logger,
	}
	state.InitFields(a.global, program.State, a.ctx, nil)

	a.logger.Debug("app created", "app", a.id, "version", program.Version)
	return a, nil
}

// documentOf returns the topmost ancestor of n.
func documentOf(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func (a *App) rootFrame() frame {
	return frame{app: a, scope: a.global, ctx: a.ctx, owner: a.root}
}

// viewNode is the program view, wrapped in the program's local scope
// when it declares one.
func (a *App) viewNode() ir.Node {
	p := a.program
	if len(p.LocalState) == 0 && len(p.LocalActions) == 0 {
		return p.View
	}
	return &ir.Local{State: p.LocalState, Actions: p.LocalActions, Child: p.View}
}

// renderInto renders the view with deferred work held until the block is
// attached to the container.
func (a *App) renderInto(cur *cursor) {
	a.rendering = true
	b := a.rootFrame().render(a.viewNode(), cur)
	if cur == nil {
		appendBlock(a.container, b)
	}
	a.rendering = false
	a.runDeferred()
}

func (a *App) afterRender(fn func()) {
	if a.rendering {
		a.deferred = append(a.deferred, fn)
		return
	}
	fn()
}

func (a *App) runDeferred() {
	for len(a.deferred) > 0 {
		fn := a.deferred[0]
		a.deferred = a.deferred[1:]
		fn()
	}
}

// CreateApp renders program into container, replacing its children, and
// dispatches onMount.
func CreateApp(program *ir.Program, container *html.Node, opts ...Option) (*App, error) {
	a, err := newApp(program, container, opts)
	if err != nil {
		return nil, err
	}
	dom.ReplaceChildren(container)
	a.guard("render", func() { a.renderInto(nil) })
	a.mount()
	return a, nil
}

// HydrateApp adopts the server-rendered children of container and
// dispatches onMount. Mismatches are repaired locally and recorded (see
// Errors).
func HydrateApp(program *ir.Program, container *html.Node, opts ...Option) (*App, error) {
	a, err := newApp(program, container, opts)
	if err != nil {
		return nil, err
	}
	a.guard("hydrate", func() {
		cur := newCursor(container)
		a.renderInto(cur)
		cur.skipWhitespace()
		if cur.next != nil && !a.claimed[cur.next] {
			a.report(NewHydrationMismatchError("end of view", describe(cur.next)), "")
		} else if left := cur.markers.remaining(container); len(left) > 0 {
			a.report(NewHydrationMismatchError("end of view", describe(left[0])), "")
		}
	})
	a.mount()
	return a, nil
}

func (a *App) mount() {
	a.mounted = true
	if a.ssr {
		return
	}
	a.lifecycle("onMount", a.program.Lifecycle.OnMount, nil)
}

// lifecycle dispatches the global action name for hook, if set.
func (a *App) lifecycle(hook, name string, payload any) {
	if name == "" {
		return
	}
	a.guard(hook, func() { a.dispatch(a.global, name, payload, a.ctx, "") })
}

// guard runs fn and records a panic as a lifecycle failure of hook.
func (a *App) guard(hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.report(NewLifecycleHookError(hook, fmt.Errorf("panic: %v", r)), "")
		}
	}()
	fn()
}

func (a *App) report(err *RuntimeError, islandID string) {
	if err.Island == "" {
		err.Island = islandID
	}
	a.errs = append(a.errs, err)
	attrs := []any{"code", err.Code, "app", a.id}
	if err.Action != "" {
		attrs = append(attrs, "action", err.Action)
	}
	if err.Island != "" {
		attrs = append(attrs, "island", err.Island)
	}
	if err.Err != nil {
		attrs = append(attrs, "error", err.Err)
	}
	a.logger.Warn(err.Message, attrs...)
}

func (a *App) cleanupFailed(err error) {
	a.report(NewLifecycleHookError("cleanup", err), "")
}

// ID returns the app instance id.
func (a *App) ID() string { return a.id }

// Window returns the host the app runs on.
func (a *App) Window() *dom.Window { return a.window }

// Container returns the element the app is mounted in.
func (a *App) Container() *html.Node { return a.container }

// Errors returns every failure the app recovered from, oldest first.
func (a *App) Errors() []error { return slices.Clone(a.errs) }

// GetState returns a copy of one global state value.
func (a *App) GetState(name string) any {
	return ir.Clone(a.global.Get(name))
}

// Snapshot returns a copy of the whole global state.
func (a *App) Snapshot() map[string]any {
	return a.global.Store().Snapshot()
}

// SetState writes a global state value. Dependent DOM updates apply
// before SetState returns.
func (a *App) SetState(name string, value any) {
	if a.destroyed {
		return
	}
	a.global.Set(name, ir.Normalize(value))
}

// Subscribe calls fn with the new value of name after each change. The
// returned function unsubscribes; Destroy unsubscribes too.
func (a *App) Subscribe(name string, fn func(value any)) func() {
	if a.destroyed {
		return func() {}
	}
	unsub := a.global.Watch(name, state.Listener(fn))
	a.root.onCleanup(unsub)
	return unsub
}

// Dispatch runs a global action with payload. A panic inside the action
// is recorded like a lifecycle failure and does not reach the caller.
func (a *App) Dispatch(name string, payload any) {
	a.guard("dispatch", func() { a.dispatch(a.global, name, ir.Normalize(payload), a.ctx, "") })
}

// Navigate changes the route, dispatching onRouteLeave before and
// onRouteEnter after the change.
func (a *App) Navigate(path string) {
	if a.destroyed {
		return
	}
	lc := a.program.Lifecycle
	a.lifecycle("onRouteLeave", lc.OnRouteLeave, a.route["path"])
	a.window.SetLocation(path)
	a.route["path"] = path
	a.signals.Set(signalRoute, expr.ToNumber(a.signals.Get(signalRoute))+1)
	a.lifecycle("onRouteEnter", lc.OnRouteEnter, path)
}

// Route returns a copy of the current route.
func (a *App) Route() map[string]any { return maps.Clone(a.route) }

// Flush runs pending tasks and due timers on the app's window.
func (a *App) Flush() int { return a.window.Flush() }

// Settle waits for in-flight fetches and runs their continuations.
func (a *App) Settle(ctx context.Context) error { return a.window.Settle(ctx) }

// Prefetched lists the URLs prefetched so far, sorted.
func (a *App) Prefetched() []string {
	return slices.Sorted(maps.Keys(a.prefetched))
}

func (a *App) prefetch(href string) {
	if href == "" || a.prefetched[href] || a.destroyed {
		return
	}
	a.prefetched[href] = true
	a.window.Fetch(&dom.Request{Method: "GET", URL: href}, func(_ *dom.Response, err error) {
		if err != nil {
			a.logger.Debug("prefetch failed", "url", href, "error", err)
		}
	})
}

// Destroyed reports whether Destroy has run.
func (a *App) Destroyed() bool { return a.destroyed }

// Destroy dispatches onUnmount, then releases every listener, effect,
// observer and scope the app holds. Failures are recorded, never
// returned. Destroy is idempotent.
func (a *App) Destroy() {
	if a.destroyed {
		return
	}
	if a.mounted && !a.ssr {
		a.lifecycle("onUnmount", a.program.Lifecycle.OnUnmount, nil)
	}
	a.destroyed = true

	a.guard("destroy", func() { a.root.dispose(a.cleanupFailed) })
	a.guard("destroy", func() {
		a.arena.disposeAll()
		a.global.Dispose()
		a.signals.Dispose()
	})
	if a.ownsWindow {
		a.guard("destroy", a.window.Close)
	}
	a.logger.Debug("app destroyed", "app", a.id)
}
