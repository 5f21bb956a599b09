package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/engine"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/island"
)

// HydrateOptions holds flags for the hydrate command.
type HydrateOptions struct {
	*RootOptions
	Islands  bool     // hydrate island by island instead of the whole tree
	Trigger  bool     // fire idle, visibility and interaction for every island
	Media    []string // media queries that match
	Location string
	Dispatch []string // actions dispatched after hydration, in order
	Imports  string
}

// IslandReport describes one island element after hydration.
type IslandReport struct {
	ID       string `json:"id"`
	Strategy string `json:"strategy"`
	Hydrated bool   `json:"hydrated"`
}

// HydrateResult is the JSON payload of the hydrate command.
type HydrateResult struct {
	Mode      string         `json:"mode"`
	Islands   []IslandReport `json:"islands"`
	State     map[string]any `json:"state"`
	StateHash string         `json:"state_hash"`
	Errors    []string       `json:"errors,omitempty"`
	HTML      string         `json:"html"`
}

// NewHydrateCommand creates the hydrate command.
func NewHydrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HydrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hydrate <program> <html>",
		Short: "Hydrate server-rendered HTML and report the result",
		Long: `Attach a program to markup produced by render, then report which
islands hydrated, the resulting global state and any runtime errors.

Storage steps use the database at storage.path when configured.

Exit codes:
  0 - Hydrated without runtime errors
  1 - The app recorded runtime errors (mismatches, failed calls)
  2 - Command error (unreadable program or markup)

Examples:
  islet hydrate app.json page.html
  islet hydrate app.json page.html --islands --trigger
  islet hydrate app.json page.html --islands --media "(min-width: 800px)"
  islet hydrate app.json page.html --dispatch save --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHydrate(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Islands, "islands", false, "hydrate islands by strategy instead of the whole tree")
	cmd.Flags().BoolVar(&opts.Trigger, "trigger", false, "fire idle, visible and interaction strategies for every island")
	cmd.Flags().StringArrayVar(&opts.Media, "media", nil, "media query that matches (repeatable)")
	cmd.Flags().StringVar(&opts.Location, "location", "/", "window location path")
	cmd.Flags().StringArrayVar(&opts.Dispatch, "dispatch", nil, "global action to dispatch after hydration (repeatable)")
	cmd.Flags().StringVar(&opts.Imports, "imports", "", "YAML/JSON file with import data")

	return cmd
}

func runHydrate(opts *HydrateOptions, programPath, htmlPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()
	ctx := cmd.Context()

	program, err := LoadProgram(programPath)
	if err != nil {
		return loadFailure(formatter, err)
	}
	markup, err := os.ReadFile(htmlPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to read html", err)
	}
	container, err := dom.ParseContainer(string(markup))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to parse html", err)
	}

	storage, closeStorage, err := openStorage(ctx, opts.config().Storage)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to open storage", err)
	}
	defer closeStorage()

	wopts := []dom.WindowOption{
		dom.WithLogger(logger),
		dom.WithStorage(storage),
		dom.WithLocation(opts.Location),
	}
	for _, q := range opts.Media {
		wopts = append(wopts, dom.WithMedia(q, true))
	}
	window := dom.NewWindow(container, wopts...)
	defer window.Close()

	engineOpts := []engine.Option{engine.WithLogger(logger), engine.WithWindow(window)}
	if opts.Imports != "" {
		data, err := loadImports(opts.Imports)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load imports", err)
		}
		engineOpts = append(engineOpts, engine.WithImports(data))
	}

	mode := "hydrate"
	hydrate := engine.HydrateApp
	if opts.Islands {
		mode = "islands"
		hydrate = engine.HydrateIslands
	}
	app, err := hydrate(program, container, engineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRenderFail, mode+" failed", err)
	}
	defer app.Destroy()
	app.Flush()

	if opts.Trigger {
		triggerIslands(window, container)
	}
	for _, name := range opts.Dispatch {
		formatter.VerboseLog("dispatching %s", name)
		app.Dispatch(name, nil)
		app.Flush()
	}
	if err := app.Settle(ctx); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "settle failed", err)
	}

	result := HydrateResult{
		Mode:    mode,
		Islands: islandReports(container),
		State:   app.Snapshot(),
		HTML:    dom.InnerHTML(container),
	}
	if result.StateHash, err = ir.StateHash(result.State); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to hash state", err)
	}
	for _, e := range app.Errors() {
		result.Errors = append(result.Errors, e.Error())
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writeHydrateText(formatter, result)
	}
	if len(result.Errors) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("hydration recorded %d runtime error(s)", len(result.Errors)))
	}
	return nil
}

// triggerIslands fires every strategy the host can satisfy on its own.
// Media islands still need --media.
func triggerIslands(w *dom.Window, container *html.Node) {
	w.RunIdle()
	w.Advance(island.IdleFallbackDelay)
	for _, el := range dom.FindAll(container, dom.HasAttr(island.AttrID)) {
		w.Intersect(el, 1)
		w.FocusIn(el)
	}
	w.Flush()
}

func islandReports(container *html.Node) []IslandReport {
	reports := []IslandReport{}
	for _, el := range dom.FindAll(container, dom.HasAttr(island.AttrID)) {
		reports = append(reports, IslandReport{
			ID:       dom.AttrOr(el, island.AttrID, ""),
			Strategy: dom.AttrOr(el, island.AttrStrategy, string(island.Load)),
			Hydrated: dom.HasAttr(island.AttrHydrated)(el),
		})
	}
	return reports
}

func writeHydrateText(f *OutputFormatter, r HydrateResult) {
	fmt.Fprintf(f.Writer, "mode: %s\n", r.Mode)
	for _, is := range r.Islands {
		mark := "✓"
		if !is.Hydrated {
			mark = "·"
		}
		fmt.Fprintf(f.Writer, "%s island %s (%s)\n", mark, is.ID, is.Strategy)
	}
	state, err := json.Marshal(r.State)
	if err != nil {
		state = []byte(fmt.Sprint(r.State))
	}
	fmt.Fprintf(f.Writer, "state: %s\n", state)
	for _, e := range r.Errors {
		fmt.Fprintf(f.Writer, "✗ %s\n", e)
	}
}
