package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/islet/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool // initializer cycles fail validation
}

// FileValidation holds the validation outcome of one program file.
type FileValidation struct {
	Path     string                     `json:"path"`
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// ValidationResult holds validation results for every file.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <program|dir>...",
		Short: "Validate programs without rendering them",
		Long: `Load each program and check it for structural errors: unknown
actions in handlers, lifecycle hooks and call steps, unsupported versions,
bad island strategies, duplicate island ids and loops without an item
name. State initializers that read each other in a cycle are reported
as warnings.

Directories are searched for .json, .yaml, .yml and .cue files.

Exit codes:
  0 - All programs valid
  1 - Validation errors (or warnings with --strict)
  2 - Command error (missing path, unreadable program)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat initializer cycles as errors")

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	files, err := FindPrograms(paths)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return formatter.Fail(ExitCommandError, le.Code, le.Message, err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to find programs", err)
	}
	formatter.VerboseLog("Found %d program file(s)", len(files))

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, path := range files {
		fv := validateFile(path, opts.Strict)
		formatter.VerboseLog("Validated %s: %d error(s), %d warning(s)", path, len(fv.Errors), len(fv.Warnings))
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = firstValidationError(result)
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		writeValidateText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed in %d file(s)", countInvalid(result)))
	}
	return nil
}

func validateFile(path string, strict bool) FileValidation {
	fv := FileValidation{Path: path}
	program, err := LoadProgram(path)
	if err != nil {
		code, msg := ErrCodeLoadFailed, err.Error()
		var le *LoadError
		if errors.As(err, &le) {
			code, msg = le.Code, le.Message
			if le.Line > 0 {
				msg = fmt.Sprintf("line %d: %s", le.Line, msg)
			}
		}
		fv.Errors = []compiler.ValidationError{{Field: "program", Message: msg, Code: code}}
		return fv
	}
	fv.Errors = compiler.Validate(program)
	fv.Warnings = compiler.AnalyzeInitCycles(program)
	fv.Valid = len(fv.Errors) == 0 && (!strict || len(fv.Warnings) == 0)
	return fv
}

func firstValidationError(r ValidationResult) *CLIError {
	for _, f := range r.Files {
		if len(f.Errors) > 0 {
			return &CLIError{Code: f.Errors[0].Code, Message: f.Path + ": " + f.Errors[0].Message}
		}
		if !f.Valid && len(f.Warnings) > 0 {
			return &CLIError{Code: "W001", Message: f.Path + ": " + f.Warnings[0].Message}
		}
	}
	return nil
}

func countInvalid(r ValidationResult) int {
	n := 0
	for _, f := range r.Files {
		if !f.Valid {
			n++
		}
	}
	return n
}

func writeValidateText(f *OutputFormatter, r ValidationResult) {
	for _, fv := range r.Files {
		mark := "✓"
		if !fv.Valid {
			mark = "✗"
		}
		fmt.Fprintf(f.Writer, "%s %s\n", mark, fv.Path)
		for _, e := range fv.Errors {
			fmt.Fprintf(f.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
		}
		for _, w := range fv.Warnings {
			fmt.Fprintf(f.Writer, "  warning: %s\n", w.Message)
		}
	}
	if r.Valid {
		fmt.Fprintln(f.Writer, "✓ All programs valid")
	}
}
