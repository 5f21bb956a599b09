package harness

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"

	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/engine"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/island"
)

// maxMarkupInError truncates the document shown in assertion errors.
const maxMarkupInError = 400

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Markup   string // Document at evaluation time
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Markup != "" {
		markup := e.Markup
		if len(markup) > maxMarkupInError {
			markup = markup[:maxMarkupInError] + "..."
		}
		fmt.Fprintf(&buf, "\nDocument:\n  %s\n", markup)
	}

	return buf.String()
}

// assertText checks the text content of the first element matching Target.
func assertText(root *html.Node, a Assertion) error {
	el := dom.Select(root, a.Target)
	want := expectString(a.Expect)
	if el == nil {
		return &AssertionError{
			Type:     AssertText,
			Expected: fmt.Sprintf("%s with text %q", a.Target, want),
			Actual:   "no element matches",
			Markup:   dom.InnerHTML(root),
		}
	}
	if got := dom.TextContent(el); got != want {
		return &AssertionError{
			Type:     AssertText,
			Expected: fmt.Sprintf("%s with text %q", a.Target, want),
			Actual:   fmt.Sprintf("%q", got),
			Markup:   dom.InnerHTML(root),
		}
	}
	return nil
}

// assertAttr checks an attribute of the first element matching Target.
// A null expectation asserts the attribute is absent.
func assertAttr(root *html.Node, a Assertion) error {
	el := dom.Select(root, a.Target)
	if el == nil {
		return &AssertionError{
			Type:     AssertAttr,
			Expected: fmt.Sprintf("%s[%s]", a.Target, a.Name),
			Actual:   "no element matches",
			Markup:   dom.InnerHTML(root),
		}
	}
	got, ok := dom.GetAttr(el, a.Name)
	if a.Expect == nil {
		if ok {
			return &AssertionError{
				Type:     AssertAttr,
				Expected: fmt.Sprintf("%s without %s", a.Target, a.Name),
				Actual:   fmt.Sprintf("%s=%q", a.Name, got),
			}
		}
		return nil
	}
	want := expectString(a.Expect)
	if !ok || got != want {
		actual := "absent"
		if ok {
			actual = strconv.Quote(got)
		}
		return &AssertionError{
			Type:     AssertAttr,
			Expected: fmt.Sprintf("%s=%q on %s", a.Name, want, a.Target),
			Actual:   actual,
		}
	}
	return nil
}

// assertState checks a global state value with JSON value semantics.
func assertState(app *engine.App, a Assertion) error {
	want := ir.Normalize(a.Expect)
	got := app.GetState(a.Name)
	if diff := cmp.Diff(want, got); diff != "" {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%s = %s", a.Name, canonical(want)),
			Actual:   fmt.Sprintf("%s (-want +got):\n%s", canonical(got), diff),
		}
	}
	return nil
}

// assertCount checks the number of elements matching Target.
func assertCount(root *html.Node, a Assertion) error {
	if got := len(dom.SelectAll(root, a.Target)); got != a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d × %s", a.Count, a.Target),
			Actual:   fmt.Sprintf("%d", got),
			Markup:   dom.InnerHTML(root),
		}
	}
	return nil
}

// assertHydrated checks an island's hydrated marker.
func assertHydrated(root *html.Node, a Assertion) error {
	want, _ := a.Expect.(bool)
	el := dom.Select(root, fmt.Sprintf("[%s=%s]", island.AttrID, a.Island))
	if el == nil {
		return &AssertionError{
			Type:     AssertHydrated,
			Expected: fmt.Sprintf("island %q", a.Island),
			Actual:   "no such island element",
			Markup:   dom.InnerHTML(root),
		}
	}
	_, got := dom.GetAttr(el, island.AttrHydrated)
	if got != want {
		return &AssertionError{
			Type:     AssertHydrated,
			Expected: fmt.Sprintf("island %q hydrated=%t", a.Island, want),
			Actual:   fmt.Sprintf("hydrated=%t", got),
		}
	}
	return nil
}

// assertErrors checks the runtime error codes the app recorded.
func assertErrors(app *engine.App, a Assertion) error {
	var want []string
	if list, ok := a.Expect.([]any); ok {
		for _, v := range list {
			want = append(want, expectString(v))
		}
	}
	got := runtimeErrorCodes(app)
	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertErrors,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// expectString renders a YAML expectation the way the DOM shows values.
func expectString(v any) string {
	switch val := ir.Normalize(v).(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return ir.FormatNumber(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return canonical(val)
	}
}

func canonical(v any) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the final document
// and app. Returns a slice of error messages for failed assertions.
func EvaluateAssertions(root *html.Node, app *engine.App, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertText:
			err = assertText(root, assertion)
		case AssertAttr:
			err = assertAttr(root, assertion)
		case AssertState:
			err = assertState(app, assertion)
		case AssertCount:
			err = assertCount(root, assertion)
		case AssertHydrated:
			err = assertHydrated(root, assertion)
		case AssertErrors:
			err = assertErrors(app, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}

	return errors
}
