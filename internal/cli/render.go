package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/islet/internal/compiler"
	"github.com/roach88/islet/internal/engine"
	"github.com/roach88/islet/internal/ir"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Output  string // write markup here instead of stdout
	Pretty  bool
	Imports string // YAML or JSON file with import data
}

// RenderResult is the JSON payload of the render command.
type RenderResult struct {
	HTML        string `json:"html"`
	Output      string `json:"output,omitempty"`
	ProgramHash string `json:"program_hash"`
	MarkupHash  string `json:"markup_hash"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <program>",
		Short: "Render a program to static HTML",
		Long: `Render a program on the server side.

The markup carries the markers hydrate needs: comment markers around
conditionals and loops, and data-island-* attributes with each island's
serialized state. Lifecycle actions do not run.

Examples:
  islet render app.json
  islet render app.cue -o page.html
  islet render app.yaml --imports data.yaml --pretty`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write HTML to file instead of stdout")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "indent output for reading (default from render.pretty)")
	cmd.Flags().StringVar(&opts.Imports, "imports", "", "YAML/JSON file with import data")

	return cmd
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	program, err := LoadProgram(path)
	if err != nil {
		return loadFailure(formatter, err)
	}
	for _, verr := range compiler.Validate(program) {
		logger.Warn("program has validation errors", "code", verr.Code, "field", verr.Field, "message", verr.Message)
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.Imports != "" {
		data, err := loadImports(opts.Imports)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load imports", err)
		}
		engineOpts = append(engineOpts, engine.WithImports(data))
	}

	markup, err := engine.RenderToString(program, engineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRenderFail, "render failed", err)
	}

	pretty := opts.config().Render.Pretty
	if cmd.Flags().Changed("pretty") {
		pretty = opts.Pretty
	}
	if pretty {
		if markup, err = prettyHTML(markup); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeRenderFail, "pretty print failed", err)
		}
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(markup), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write output", err)
		}
		formatter.VerboseLog("wrote %d bytes to %s", len(markup), opts.Output)
	}

	if formatter.Format == "json" {
		hash, err := programHash(path)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to hash program", err)
		}
		return formatter.Success(RenderResult{
			HTML:        markup,
			Output:      opts.Output,
			ProgramHash: hash,
			MarkupHash:  ir.MarkupHash(markup),
		})
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "✓ Rendered %s to %s\n", path, opts.Output)
		return nil
	}
	fmt.Fprint(formatter.Writer, markup)
	if !pretty {
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

// loadImports reads import data. YAML is a superset of JSON, so one
// decoder serves both.
func loadImports(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if data == nil {
		return map[string]any{}, nil
	}
	return ir.Normalize(data).(map[string]any), nil
}

// loadFailure reports a LoadProgram error.
func loadFailure(formatter *OutputFormatter, err error) error {
	code := ErrCodeLoadFailed
	var le *LoadError
	if errors.As(err, &le) {
		code = le.Code
	}
	return formatter.Fail(ExitCommandError, code, "failed to load program", err)
}
