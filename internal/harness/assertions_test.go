package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wisp/internal/engine"
	"github.com/roach88/wisp/internal/transform"
)

func sampleTrace() []engine.TraceEvent {
	return []engine.TraceEvent{
		{Seq: 1, Step: 1, Kind: engine.TraceMount, Message: "Ticker"},
		{Seq: 2, Step: 1, Kind: engine.TraceLog, Message: "outer 1"},
		{Seq: 3, Step: 1, Kind: engine.TraceLog, Message: "inner 1"},
		{Seq: 4, Step: 2, Kind: engine.TraceSet, Message: "rate = 2"},
		{Seq: 5, Step: 2, Kind: engine.TraceLog, Message: "outer 2"},
		{Seq: 6, Step: 2, Kind: engine.TraceLog, Message: "inner 2"},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Message: "outer 2"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Kind: engine.TraceSet, Contains: "rate"}))
	assert.Error(t, assertTraceContains(trace, Assertion{Kind: engine.TraceSet, Message: "outer 2"}))

	err := assertTraceContains(trace, Assertion{Kind: engine.TraceCall, Message: "onSave(1)"})
	var ae *AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Equal(t, `event with kind call with message "onSave(1)"`, ae.Expected)
	assert.Contains(t, err.Error(), "[4] step 2 set: rate = 2")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	tests := []struct {
		name     string
		kind     string
		messages []string
		wantErr  string
	}{
		{name: "in order", messages: []string{"outer 1", "rate = 2", "inner 2"}},
		{name: "gaps allowed", messages: []string{"Ticker", "inner 2"}},
		{name: "kind filter", kind: engine.TraceLog, messages: []string{"outer 1", "outer 2"}},
		{name: "reversed", messages: []string{"inner 2", "outer 1"}, wantErr: `"outer 1" not found after "inner 2"`},
		{name: "repeat needs two events", messages: []string{"outer 1", "outer 1"}, wantErr: "not found after"},
		{name: "missing", messages: []string{"gone"}, wantErr: `"gone" not found`},
		{name: "wrong kind", kind: engine.TraceSet, messages: []string{"outer 1"}, wantErr: "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceOrder(trace, Assertion{Kind: tt.kind, Messages: tt.messages})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Kind: engine.TraceLog, Count: 4}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Contains: "outer", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Kind: engine.TraceCall, Count: 0}))

	err := assertTraceCount(trace, Assertion{Kind: engine.TraceSet, Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 2 events with kind set")
	assert.Contains(t, err.Error(), "Actual: 1 events")
}

func TestResultAssertions(t *testing.T) {
	result := NewResult()
	result.HTML = `<p class="2">2</p>`
	result.Code = `export default reactiveElement(Counter, ["count"]);`
	result.Diagnostics = []transform.Diagnostic{
		{Severity: transform.SeverityWarning, Code: transform.CodeSpreadProps},
		{Severity: transform.SeverityWarning, Code: transform.CodeDynamicI18nKey},
	}
	result.Stats = engine.Stats{EffectRuns: 4, LiveEffects: 2}

	tests := []struct {
		name      string
		assertion Assertion
		pass      bool
	}{
		{"html equals", Assertion{Type: AssertHTMLEquals, HTML: "<p class=\"2\">2</p>\n"}, true},
		{"html differs", Assertion{Type: AssertHTMLEquals, HTML: "<p>2</p>"}, false},
		{"html contains", Assertion{Type: AssertHTMLContains, HTML: `class="2"`}, true},
		{"html missing", Assertion{Type: AssertHTMLContains, HTML: "<b>"}, false},
		{"code contains", Assertion{Type: AssertCodeContains, Text: `reactiveElement(Counter`}, true},
		{"code missing", Assertion{Type: AssertCodeContains, Text: "effect("}, false},
		{"all diagnostics", Assertion{Type: AssertDiagnosticCount, Count: 2}, true},
		{"diagnostics by code", Assertion{Type: AssertDiagnosticCount, Code: transform.CodeSpreadProps, Count: 1}, true},
		{"diagnostic count off", Assertion{Type: AssertDiagnosticCount, Code: transform.CodeMissingReturn, Count: 1}, false},
		{"live effects", Assertion{Type: AssertLiveEffects, Count: 2}, true},
		{"live effects off", Assertion{Type: AssertLiveEffects, Count: 0}, false},
		{"no error expected error", Assertion{Type: AssertErrorCode, Code: "THROWN"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(result, []Assertion{tt.assertion})
			if tt.pass {
				assert.Empty(t, errs)
			} else {
				assert.Len(t, errs, 1)
			}
		})
	}
}

func TestAssertErrorCode(t *testing.T) {
	result := NewResult()
	result.ErrorCode = string(engine.ErrCodeQuotaExceeded)
	result.Err = engine.NewQuotaError(1, 11, 10)

	assert.NoError(t, assertErrorCode(result, Assertion{Code: "QUOTA_EXCEEDED"}))

	err := assertErrorCode(result, Assertion{Code: "THROWN"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: QUOTA_EXCEEDED: ")
}

func TestEvaluateAssertionsUnknownType(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: "final_state"}})
	require.Len(t, errs, 1)
	assert.Equal(t, `assertion[0]: unknown assertion type "final_state"`, errs[0])
}

func TestResultAddError(t *testing.T) {
	result := NewResult()
	assert.True(t, result.Pass)
	result.AddError("first")
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"first"}, result.Errors)
}
