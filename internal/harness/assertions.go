package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/wisp/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string              // Assertion type for categorization
	Expected string              // Human-readable expected outcome
	Actual   string              // Human-readable actual outcome
	Trace    []engine.TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d %s: %s\n", event.Seq, event.Step, event.Kind, event.Message)
		}
	}

	return buf.String()
}

// matchEvent reports whether event satisfies the assertion's kind and
// message filters. Unset filters match everything.
func matchEvent(event engine.TraceEvent, a Assertion) bool {
	if a.Kind != "" && event.Kind != a.Kind {
		return false
	}
	if a.Message != "" && event.Message != a.Message {
		return false
	}
	if a.Contains != "" && !strings.Contains(event.Message, a.Contains) {
		return false
	}
	return true
}

func describeMatch(a Assertion) string {
	var parts []string
	if a.Kind != "" {
		parts = append(parts, "kind "+a.Kind)
	}
	if a.Message != "" {
		parts = append(parts, fmt.Sprintf("message %q", a.Message))
	}
	if a.Contains != "" {
		parts = append(parts, fmt.Sprintf("message containing %q", a.Contains))
	}
	return strings.Join(parts, " with ")
}

// assertTraceContains checks that at least one event matches.
func assertTraceContains(trace []engine.TraceEvent, a Assertion) error {
	for _, event := range trace {
		if matchEvent(event, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: "event with " + describeMatch(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the messages appear in the given order.
// Events need not be consecutive; each message is searched for after the
// previous match, so repeated messages must occur repeatedly.
func assertTraceOrder(trace []engine.TraceEvent, a Assertion) error {
	pos := 0
	for i, want := range a.Messages {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if (a.Kind == "" || event.Kind == a.Kind) && event.Message == want {
				found = true
				break
			}
		}
		if !found {
			actual := fmt.Sprintf("%q not found", want)
			if i > 0 {
				actual = fmt.Sprintf("%q not found after %q", want, a.Messages[i-1])
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("messages in order: %q", a.Messages),
				Actual:   actual,
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks the exact number of matching events.
func assertTraceCount(trace []engine.TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if matchEvent(event, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d events with %s", a.Count, describeMatch(a)),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertHTMLEquals(result *Result, a Assertion) error {
	want := strings.TrimSpace(a.HTML)
	if result.HTML != want {
		return &AssertionError{
			Type:     AssertHTMLEquals,
			Expected: want,
			Actual:   result.HTML,
		}
	}
	return nil
}

func assertHTMLContains(result *Result, a Assertion) error {
	if !strings.Contains(result.HTML, a.HTML) {
		return &AssertionError{
			Type:     AssertHTMLContains,
			Expected: "html containing " + a.HTML,
			Actual:   result.HTML,
		}
	}
	return nil
}

func assertCodeContains(result *Result, a Assertion) error {
	if !strings.Contains(result.Code, a.Text) {
		return &AssertionError{
			Type:     AssertCodeContains,
			Expected: "compiled code containing " + a.Text,
			Actual:   result.Code,
		}
	}
	return nil
}

// assertDiagnosticCount counts diagnostics, restricted to one code when
// the assertion names it.
func assertDiagnosticCount(result *Result, a Assertion) error {
	count := 0
	var seen []string
	for _, d := range result.Diagnostics {
		seen = append(seen, d.Code)
		if a.Code == "" || d.Code == a.Code {
			count++
		}
	}
	if count != a.Count {
		what := "diagnostics"
		if a.Code != "" {
			what = a.Code + " diagnostics"
		}
		return &AssertionError{
			Type:     AssertDiagnosticCount,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d (all codes: %v)", count, seen),
		}
	}
	return nil
}

func assertLiveEffects(result *Result, a Assertion) error {
	if result.Stats.LiveEffects != a.Count {
		return &AssertionError{
			Type:     AssertLiveEffects,
			Expected: fmt.Sprintf("%d live effects", a.Count),
			Actual:   fmt.Sprintf("%d live effects", result.Stats.LiveEffects),
		}
	}
	return nil
}

func assertErrorCode(result *Result, a Assertion) error {
	if result.ErrorCode != a.Code {
		actual := "no error"
		if result.Err != nil {
			actual = fmt.Sprintf("%s: %v", result.ErrorCode, result.Err)
		}
		return &AssertionError{
			Type:     AssertErrorCode,
			Expected: a.Code,
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertHTMLEquals:
			err = assertHTMLEquals(result, assertion)
		case AssertHTMLContains:
			err = assertHTMLContains(result, assertion)
		case AssertCodeContains:
			err = assertCodeContains(result, assertion)
		case AssertDiagnosticCount:
			err = assertDiagnosticCount(result, assertion)
		case AssertLiveEffects:
			err = assertLiveEffects(result, assertion)
		case AssertErrorCode:
			err = assertErrorCode(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
