package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Step   string `json:"step"`
	Target string `json:"target,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step ran and every assertion held.
	Pass bool `json:"pass"`

	// Trace lists executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// HTML is the container's markup after the last step.
	HTML string `json:"html"`

	// State is the app's global state after the last step.
	State map[string]any `json:"state,omitempty"`

	// Hydrated lists the ids of islands that hydrated, in order.
	Hydrated []string `json:"hydrated,omitempty"`

	// RuntimeErrors lists the codes of errors the app recorded.
	RuntimeErrors []string `json:"runtime_errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends an executed step.
func (r *Result) addTrace(seq int64, step, target string) {
	r.Trace = append(r.Trace, TraceEvent{Seq: seq, Step: step, Target: target})
}
