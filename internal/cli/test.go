package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/islet/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario name filter (glob pattern)
	Golden string // directory of <name>.golden files
	Update bool   // regenerate golden files
	Jobs   int
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run hydration scenarios",
		Long: `Run every YAML scenario under a directory.

Each scenario renders or loads markup, hydrates it, replays its steps
against a virtual window and checks its assertions. Scenarios run
concurrently; each one gets its own window and in-memory storage.

With --golden, the final markup of each scenario is also compared with
<golden>/<name>.golden; --update rewrites those files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, unreadable scenarios)

Examples:
  islet test ./scenarios
  islet test ./scenarios --filter "counter*"
  islet test ./scenarios --golden ./golden --update
  islet test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden HTML files")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", runtime.NumCPU(), "scenarios run in parallel")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "scenarios directory not found: "+dir, nil)
	}
	if opts.Update && opts.Golden == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--update requires --golden", nil)
	}

	all, err := harness.LoadDir(dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load scenarios", err)
	}
	scenarios, err := filterScenarios(all, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid filter pattern", err)
	}

	results := make([]ScenarioResult, len(scenarios))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(opts.Jobs, 1))
	for i, s := range scenarios {
		formatter.VerboseLog("running %s", s.Name)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = runScenario(ctx, opts, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "scenario run interrupted", err)
	}

	result := TestResult{Scenarios: results, Total: len(results)}
	for _, r := range results {
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		writeTestText(formatter, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

func filterScenarios(all []*harness.Scenario, pattern string) ([]*harness.Scenario, error) {
	if pattern == "" {
		return all, nil
	}
	var out []*harness.Scenario
	for _, s := range all {
		ok, err := filepath.Match(pattern, s.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// runScenario executes one scenario and folds golden comparison into
// its result.
func runScenario(ctx context.Context, opts *TestOptions, s *harness.Scenario) ScenarioResult {
	res, err := harness.Run(ctx, s, harness.WithLogger(opts.logger()))
	if err != nil {
		return ScenarioResult{Name: s.Name, Errors: []string{fmt.Sprintf("execution failed: %v", err)}}
	}
	out := ScenarioResult{Name: s.Name, Pass: res.Pass, Errors: res.Errors}

	if opts.Golden == "" {
		return out
	}
	path := filepath.Join(opts.Golden, s.Name+".golden")
	if opts.Update {
		err := os.MkdirAll(opts.Golden, 0o755)
		if err == nil {
			err = os.WriteFile(path, []byte(res.HTML), 0o644)
		}
		if err != nil {
			out.Pass = false
			out.Errors = append(out.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		}
		return out
	}

	want, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No golden file: assertions alone decide.
	case err != nil:
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(want, []byte(res.HTML)):
		out.Pass = false
		out.Errors = append(out.Errors, "markup does not match golden file (run with --update to regenerate)")
	}
	return out
}

func writeTestText(f *OutputFormatter, r TestResult) {
	if r.Total == 0 {
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return
	}
	for _, s := range r.Scenarios {
		if s.Pass {
			fmt.Fprintf(f.Writer, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(f.Writer, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(f.Writer, "  %s\n", e)
		}
	}
	fmt.Fprintf(f.Writer, "\n%d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
}
