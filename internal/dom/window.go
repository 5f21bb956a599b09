package dom

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/html"
)

// maxFlushTurns bounds one Flush so a timer that keeps rescheduling itself
// at zero delay cannot spin forever.
const maxFlushTurns = 10_000

// Window is a deterministic browser host.
//
// It owns one document and an event loop made of three queues: microtasks,
// posted tasks and timers on a virtual clock. Callbacks never run on their
// own; Advance, Flush, Settle and the event helpers drive the loop. Every
// callback runs with panics recovered and logged, as a browser reports an
// uncaught exception and keeps its loop alive.
type Window struct {
	Document *html.Node

	clock  *Clock
	logger *slog.Logger

	microtasks []func()
	tasks      *taskQueue

	nextID int
	timers map[int]*timer

	listeners map[*html.Node][]*listener

	idleSupported bool
	idle          []*idleRequest

	observers []*observation

	media          map[string]bool
	mediaListeners []*mediaListener

	fetcher  Fetcher
	inflight int
	ctx      context.Context
	cancel   context.CancelFunc

	storage Storage

	location string
	history  []string

	closed bool
}

// WindowOption configures a Window.
type WindowOption func(*Window)

// WithLogger sets the logger for uncaught callback failures.
func WithLogger(l *slog.Logger) WindowOption {
	return func(w *Window) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithEpoch starts the virtual clock at t.
func WithEpoch(t time.Time) WindowOption {
	return func(w *Window) { w.clock = NewClock(t) }
}

// WithoutIdleCallback makes the host report that requestIdleCallback is
// unavailable, forcing callers onto their timer fallback.
func WithoutIdleCallback() WindowOption {
	return func(w *Window) { w.idleSupported = false }
}

// WithFetcher replaces the HTTP transport used by Fetch.
func WithFetcher(f Fetcher) WindowOption {
	return func(w *Window) {
		if f != nil {
			w.fetcher = f
		}
	}
}

// WithStorage replaces the key/value storage.
func WithStorage(s Storage) WindowOption {
	return func(w *Window) {
		if s != nil {
			w.storage = s
		}
	}
}

// WithLocation sets the initial location path.
func WithLocation(path string) WindowOption {
	return func(w *Window) { w.location = path }
}

// WithMedia sets the initial result of a media query.
func WithMedia(query string, matches bool) WindowOption {
	return func(w *Window) { w.media[query] = matches }
}

// NewWindow creates a window over doc. A nil doc gets an empty <body>.
func NewWindow(doc *html.Node, opts ...WindowOption) *Window {
	if doc == nil {
		doc = NewElement("body")
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Window{
		Document:      doc,
		clock:         NewClock(DefaultEpoch),
		logger:        slog.Default(),
		tasks:         newTaskQueue(),
		timers:        make(map[int]*timer),
		listeners:     make(map[*html.Node][]*listener),
		idleSupported: true,
		media:         make(map[string]bool),
		fetcher:       NewHTTPFetcher(nil),
		ctx:           ctx,
		cancel:        cancel,
		storage:       NewMemoryStorage(),
		location:      "/",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Logger returns the window's logger.
func (w *Window) Logger() *slog.Logger { return w.logger }

// Now returns the current virtual time.
func (w *Window) Now() time.Time { return w.clock.Now() }

// Clock returns the virtual clock.
func (w *Window) Clock() *Clock { return w.clock }

// Storage returns the window's key/value storage.
func (w *Window) Storage() Storage { return w.storage }

// Location returns the current location path.
func (w *Window) Location() string { return w.location }

// SetLocation pushes path onto the history and makes it current.
func (w *Window) SetLocation(path string) {
	w.history = append(w.history, w.location)
	w.location = path
}

// History returns the previously visited locations, oldest first.
func (w *Window) History() []string {
	return append([]string(nil), w.history...)
}

// Close cancels in-flight fetches and stops accepting posted tasks.
// Pending timers, listeners and observers are dropped.
func (w *Window) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.cancel()
	w.tasks.Close()
	clear(w.timers)
	clear(w.listeners)
	w.idle = nil
	w.observers = nil
	w.mediaListeners = nil
	w.microtasks = nil
}

// Closed reports whether Close has been called.
func (w *Window) Closed() bool { return w.closed }

func (w *Window) newID() int {
	w.nextID++
	return w.nextID
}

// run invokes fn, logging instead of propagating a panic.
func (w *Window) run(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("uncaught error in callback",
				"kind", kind,
				"error", fmt.Sprint(r),
			)
		}
	}()
	fn()
}

// QueueMicrotask schedules fn to run at the end of the current task.
func (w *Window) QueueMicrotask(fn func()) {
	if w.closed || fn == nil {
		return
	}
	w.microtasks = append(w.microtasks, fn)
}

// Post schedules fn as a task. Safe to call from any goroutine.
// Returns false once the window is closed.
func (w *Window) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	return w.tasks.Enqueue(fn)
}

// drainMicrotasks runs microtasks until none remain, including those
// queued by microtasks.
func (w *Window) drainMicrotasks() bool {
	ran := false
	for len(w.microtasks) > 0 {
		fn := w.microtasks[0]
		w.microtasks[0] = nil
		w.microtasks = w.microtasks[1:]
		w.run("microtask", fn)
		ran = true
	}
	return ran
}

// runTask runs one task followed by its microtask checkpoint.
func (w *Window) runTask(kind string, fn func()) {
	w.run(kind, fn)
	w.drainMicrotasks()
}

// Flush runs everything runnable without moving time: microtasks, posted
// tasks and timers already due. It returns the number of tasks run.
func (w *Window) Flush() int {
	n := 0
	w.drainMicrotasks()
	for turn := 0; turn < maxFlushTurns; turn++ {
		if fn, ok := w.tasks.TryDequeue(); ok {
			w.runTask("task", fn)
			n++
			continue
		}
		if t := w.nextDue(w.clock.Elapsed()); t != nil {
			w.fire(t)
			n++
			continue
		}
		return n
	}
	w.logger.Warn("flush stopped after too many turns", "turns", maxFlushTurns)
	return n
}

// Advance moves virtual time forward by d, firing every timer that comes
// due in order. Each timer sees the clock at its own due time.
func (w *Window) Advance(d time.Duration) {
	if d < 0 {
		d = 0
	}
	target := w.clock.Elapsed() + d
	w.Flush()
	for {
		t := w.nextDue(target)
		if t == nil {
			break
		}
		w.clock.advanceTo(t.due)
		w.fire(t)
		w.Flush()
	}
	w.clock.advanceTo(target)
	w.Flush()
}

// Settle runs the loop until no fetch is in flight and nothing is left to
// run, or ctx is done.
func (w *Window) Settle(ctx context.Context) error {
	for {
		w.Flush()
		if w.inflight == 0 && w.tasks.Len() == 0 {
			return nil
		}
		if w.closed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.tasks.Wait():
		}
	}
}

// InFlight returns the number of fetches whose results have not yet been
// delivered.
func (w *Window) InFlight() int { return w.inflight }
