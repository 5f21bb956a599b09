package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/testutil"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testOptions(extra ...Option) []Option {
	return append([]Option{quiet(), WithIDGenerator(testutil.NewSequentialIDs("app"))}, extra...)
}

func newProgram(view ir.Node) *ir.Program {
	return &ir.Program{Version: "1", View: view}
}

func createApp(t *testing.T, p *ir.Program, opts ...Option) (*App, *html.Node) {
	t.Helper()
	container := dom.NewContainer()
	a, err := CreateApp(p, container, testOptions(opts...)...)
	require.NoError(t, err)
	t.Cleanup(a.Destroy)
	return a, container
}

func hydrateApp(t *testing.T, p *ir.Program, markup string, opts ...Option) (*App, *html.Node) {
	t.Helper()
	container := dom.MustParseContainer(markup)
	a, err := HydrateApp(p, container, testOptions(opts...)...)
	require.NoError(t, err)
	t.Cleanup(a.Destroy)
	return a, container
}

func renderSSR(t *testing.T, p *ir.Program, opts ...Option) string {
	t.Helper()
	out, err := RenderToString(p, testOptions(opts...)...)
	require.NoError(t, err)
	return out
}

func mustFind(t *testing.T, root *html.Node, pred func(*html.Node) bool) *html.Node {
	t.Helper()
	n := dom.Find(root, pred)
	require.NotNil(t, n)
	return n
}

func byAttr(key, value string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, ok := dom.GetAttr(n, key)
		return ok && v == value
	}
}

func errorCodes(a *App) []RuntimeErrorCode {
	var out []RuntimeErrorCode
	for _, err := range a.Errors() {
		if re, ok := err.(*RuntimeError); ok {
			out = append(out, re.Code)
		}
	}
	return out
}
