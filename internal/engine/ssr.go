package engine

import (
	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/ir"
)

// RenderToString renders program to the markup HydrateApp and
// HydrateIslands consume. Lifecycle actions do not run.
func RenderToString(program *ir.Program, opts ...Option) (string, error) {
	container := dom.NewContainer()
	opts = append(opts[:len(opts):len(opts)], func(c *config) { c.ssr = true })

	a, err := CreateApp(program, container, opts...)
	if err != nil {
		return "", err
	}
	defer a.Destroy()
	return dom.InnerHTML(container), nil
}
