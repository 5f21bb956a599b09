package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/islet/internal/dom"
)

type config struct {
	logger  *slog.Logger
	window  *dom.Window
	now     func() time.Time
	ids     IDGenerator
	storage dom.Storage
	fetcher dom.Fetcher
	imports map[string]any
	ssr     bool
}

// Option configures an App.
type Option func(*config)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithWindow runs the app on w instead of a window created over the
// container's document.
func WithWindow(w *dom.Window) Option {
	return func(c *config) { c.window = w }
}

// WithNow sets the clock Date expressions read. Default: the window's
// virtual clock.
func WithNow(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithIDGenerator sets the instance id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *config) { c.ids = g }
}

// WithStorage sets the storage used by storage steps when the app creates
// its own window. Ignored together with WithWindow.
func WithStorage(s dom.Storage) Option {
	return func(c *config) { c.storage = s }
}

// WithFetcher sets the transport used by fetch steps when the app creates
// its own window. Ignored together with WithWindow.
func WithFetcher(f dom.Fetcher) Option {
	return func(c *config) { c.fetcher = f }
}

// WithImports overrides the program's import data.
func WithImports(data map[string]any) Option {
	return func(c *config) { c.imports = data }
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.ids == nil {
		c.ids = UUIDv7Generator{}
	}
	return c
}
