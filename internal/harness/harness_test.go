package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestScenarios_Golden(t *testing.T) {
	defer goleak.VerifyNone(t)

	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.Len(t, scenarios, 4)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(s.Steps))
		})
	}
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	s := loadTestScenario(t, "counter_island.yaml")
	s.Steps = nil // never intersects

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Assertion failed: text")
	assert.Contains(t, result.Errors[1], "Assertion failed: hydrated")
	assert.Empty(t, result.Hydrated)
}

func TestRun_ReportsMissingTargets(t *testing.T) {
	s := loadTestScenario(t, "todo_hydrate.yaml")
	s.Steps = []Step{{Click: "#nope"}}
	s.Assertions = []Assertion{{Type: AssertCount, Target: "li", Count: 1}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `steps[0] click: no element matches "#nope"`)
	assert.Equal(t, []TraceEvent{{Seq: result.Trace[0].Seq, Step: StepClick, Target: "#nope"}}, result.Trace)
}

func TestRun_SnapshotsFinalState(t *testing.T) {
	s := loadTestScenario(t, "counter_island.yaml")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"counter"}, result.Hydrated)
	assert.Equal(t, map[string]any{"title": "Counter"}, result.State)
	assert.Empty(t, result.RuntimeErrors)
	for i := 1; i < len(result.Trace); i++ {
		assert.Less(t, result.Trace[i-1].Seq, result.Trace[i].Seq)
	}
}

func TestRun_Destroy(t *testing.T) {
	s := loadTestScenario(t, "counter_island.yaml")
	s.Steps = []Step{
		{Intersect: &IntersectStep{Target: "[data-island-id=counter]"}},
		{Destroy: true},
		{Click: "#inc"},
	}
	s.Assertions = []Assertion{{Type: AssertText, Target: "#count-display", Expect: "0"}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnknownAction(t *testing.T) {
	s := loadTestScenario(t, "storage_roundtrip.yaml")
	s.Steps = []Step{{Dispatch: &DispatchStep{Action: "sav"}}}
	s.Assertions = []Assertion{{Type: AssertErrors, Expect: []any{"UNKNOWN_ACTION"}}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_MissingProgram(t *testing.T) {
	dir := t.TempDir()
	program := filepath.Join(dir, "p.json")
	require.NoError(t, os.WriteFile(program, []byte(`{"version":"1","view":{"kind":"nope"}}`), 0o644))

	s := &Scenario{Name: "bad", Program: program, Mode: ModeHydrate}
	_, err := Run(context.Background(), s)
	assert.Error(t, err)
}

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return s
}
