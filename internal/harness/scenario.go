package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode selects how a scenario attaches to its markup.
type Mode string

const (
	ModeHydrate Mode = "hydrate"
	ModeIslands Mode = "islands"
	ModeCreate  Mode = "create"
)

// Scenario defines a hydration scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path of the compiled program (.json, .yaml or .cue).
	// Relative paths resolve against the scenario file's directory.
	Program string `yaml:"program"`

	// HTML is the path of the server markup. Empty means the program's
	// server rendering.
	HTML string `yaml:"html,omitempty"`

	// Mode defaults to hydrate.
	Mode Mode `yaml:"mode,omitempty"`

	// Window configures the host.
	Window WindowConfig `yaml:"window,omitempty"`

	// Imports overrides the program's import data.
	Imports map[string]any `yaml:"imports,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`

	// dir is the scenario file's directory.
	dir string
}

// WindowConfig configures the scenario's host window.
type WindowConfig struct {
	// Idle is false for a host without idle callbacks. Default true.
	Idle     *bool           `yaml:"idle,omitempty"`
	Location string          `yaml:"location,omitempty"`
	Media    map[string]bool `yaml:"media,omitempty"`
}

// Step is one host interaction. Exactly one field is set.
type Step struct {
	Click     string         `yaml:"click,omitempty"`
	Hover     string         `yaml:"hover,omitempty"`
	Focus     string         `yaml:"focus,omitempty"`
	Input     *InputStep     `yaml:"input,omitempty"`
	SetState  *SetStateStep  `yaml:"set_state,omitempty"`
	Dispatch  *DispatchStep  `yaml:"dispatch,omitempty"`
	Navigate  string         `yaml:"navigate,omitempty"`
	Advance   int            `yaml:"advance,omitempty"`
	Idle      bool           `yaml:"idle,omitempty"`
	Intersect *IntersectStep `yaml:"intersect,omitempty"`
	Media     *MediaStep     `yaml:"media,omitempty"`
	Flush     bool           `yaml:"flush,omitempty"`
	Settle    bool           `yaml:"settle,omitempty"`
	Destroy   bool           `yaml:"destroy,omitempty"`
}

// InputStep sets an input's value.
type InputStep struct {
	Target string `yaml:"target"`
	Value  string `yaml:"value"`
}

// SetStateStep writes a global state cell.
type SetStateStep struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

// DispatchStep dispatches an action.
type DispatchStep struct {
	Action  string `yaml:"action"`
	Payload any    `yaml:"payload,omitempty"`
}

// IntersectStep reports an element's visibility.
type IntersectStep struct {
	Target string   `yaml:"target"`
	Ratio  *float64 `yaml:"ratio,omitempty"`
}

// MediaStep flips a media query.
type MediaStep struct {
	Query   string `yaml:"query"`
	Matches bool   `yaml:"matches"`
}

// Kind names the step's type.
func (s Step) Kind() string {
	switch {
	case s.Click != "":
		return StepClick
	case s.Hover != "":
		return StepHover
	case s.Focus != "":
		return StepFocus
	case s.Input != nil:
		return StepInput
	case s.SetState != nil:
		return StepSetState
	case s.Dispatch != nil:
		return StepDispatch
	case s.Navigate != "":
		return StepNavigate
	case s.Advance != 0:
		return StepAdvance
	case s.Idle:
		return StepIdle
	case s.Intersect != nil:
		return StepIntersect
	case s.Media != nil:
		return StepMedia
	case s.Flush:
		return StepFlush
	case s.Settle:
		return StepSettle
	case s.Destroy:
		return StepDestroy
	default:
		return ""
	}
}

// Step type constants.
const (
	StepClick     = "click"
	StepHover     = "hover"
	StepFocus     = "focus"
	StepInput     = "input"
	StepSetState  = "set_state"
	StepDispatch  = "dispatch"
	StepNavigate  = "navigate"
	StepAdvance   = "advance"
	StepIdle      = "idle"
	StepIntersect = "intersect"
	StepMedia     = "media"
	StepFlush     = "flush"
	StepSettle    = "settle"
	StepDestroy   = "destroy"
)

// Assertion validates the final document or state.
type Assertion struct {
	// Type is one of text, attr, state, count, hydrated, errors.
	Type string `yaml:"type"`

	// Target is a selector (text, attr, count).
	Target string `yaml:"target,omitempty"`

	// Name is the attribute (attr) or state cell (state).
	Name string `yaml:"name,omitempty"`

	// Island is the island id (hydrated).
	Island string `yaml:"island,omitempty"`

	// Expect is the expected value.
	Expect any `yaml:"expect"`

	// Count is the expected number of matches (count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertText     = "text"
	AssertAttr     = "attr"
	AssertState    = "state"
	AssertCount    = "count"
	AssertHydrated = "hydrated"
	AssertErrors   = "errors"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.dir = filepath.Dir(path)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario under dir, sorted by path.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan scenarios: %w", err)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// resolve returns path relative to the scenario file.
func (s *Scenario) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.dir, path)
}

// ProgramPath returns the resolved program path.
func (s *Scenario) ProgramPath() string { return s.resolve(s.Program) }

// HTMLPath returns the resolved markup path, or "".
func (s *Scenario) HTMLPath() string { return s.resolve(s.HTML) }

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.ProgramPath()); os.IsNotExist(err) {
		return fmt.Errorf("program file not found: %s", s.ProgramPath())
	}
	if s.HTML != "" {
		if _, err := os.Stat(s.HTMLPath()); os.IsNotExist(err) {
			return fmt.Errorf("html file not found: %s", s.HTMLPath())
		}
	}

	switch s.Mode {
	case "":
		s.Mode = ModeHydrate
	case ModeHydrate, ModeIslands, ModeCreate:
	default:
		return fmt.Errorf("unknown mode %q", s.Mode)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that exactly one step field is set.
func validateStep(index int, s Step) error {
	set := 0
	for _, on := range []bool{
		s.Click != "", s.Hover != "", s.Focus != "", s.Input != nil,
		s.SetState != nil, s.Dispatch != nil, s.Navigate != "", s.Advance != 0,
		s.Idle, s.Intersect != nil, s.Media != nil, s.Flush, s.Settle, s.Destroy,
	} {
		if on {
			set++
		}
	}
	switch {
	case set == 0:
		return fmt.Errorf("steps[%d]: empty step", index)
	case set > 1:
		return fmt.Errorf("steps[%d]: a step has exactly one type", index)
	case s.Advance < 0:
		return fmt.Errorf("steps[%d]: advance must be positive", index)
	case s.Input != nil && s.Input.Target == "":
		return fmt.Errorf("steps[%d]: input target is required", index)
	case s.SetState != nil && s.SetState.Name == "":
		return fmt.Errorf("steps[%d]: set_state name is required", index)
	case s.Dispatch != nil && s.Dispatch.Action == "":
		return fmt.Errorf("steps[%d]: dispatch action is required", index)
	case s.Intersect != nil && s.Intersect.Target == "":
		return fmt.Errorf("steps[%d]: intersect target is required", index)
	case s.Media != nil && s.Media.Query == "":
		return fmt.Errorf("steps[%d]: media query is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertText, AssertCount:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for %s", index, a.Type)
		}
		if a.Type == AssertCount && a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertAttr:
		if a.Target == "" || a.Name == "" {
			return fmt.Errorf("assertions[%d]: target and name are required for attr", index)
		}
	case AssertState:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for state", index)
		}
	case AssertHydrated:
		if a.Island == "" {
			return fmt.Errorf("assertions[%d]: island is required for hydrated", index)
		}
		if _, ok := a.Expect.(bool); !ok {
			return fmt.Errorf("assertions[%d]: expect must be true or false for hydrated", index)
		}
	case AssertErrors:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
