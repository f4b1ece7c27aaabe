package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/wisp/internal/ast"
)

// GoldenDir is where golden files live, relative to the test package.
const GoldenDir = "testdata/golden"

// goldenSuffix is appended to the scenario name to form the file name.
const goldenSuffix = ".golden"

// ErrGoldenMismatch is returned by CheckGolden when the snapshot differs
// from the recorded file.
var ErrGoldenMismatch = errors.New("golden mismatch")

// TraceSnapshot captures what a scenario run produced.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Component    string
	HTML         string
	ErrorCode    string
	Trace        []TraceEventSnapshot
}

// TraceEventSnapshot is one trace event without its run-specific fields.
type TraceEventSnapshot struct {
	Seq     int64
	Step    int64
	Kind    string
	Message string
}

// NewSnapshot builds the snapshot of a finished run.
func NewSnapshot(scenarioName string, result *Result) TraceSnapshot {
	events := make([]TraceEventSnapshot, len(result.Trace))
	for i, e := range result.Trace {
		events[i] = TraceEventSnapshot{Seq: e.Seq, Step: e.Step, Kind: e.Kind, Message: e.Message}
	}
	return TraceSnapshot{
		ScenarioName: scenarioName,
		Component:    result.Component,
		HTML:         result.HTML,
		ErrorCode:    result.ErrorCode,
		Trace:        events,
	}
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ast.MarshalCanonical only handles plain JSON values.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		traceList[i] = map[string]any{
			"seq":     event.Seq,
			"step":    event.Step,
			"kind":    event.Kind,
			"message": event.Message,
		}
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"component":     s.Component,
		"html":          s.HTML,
		"trace":         traceList,
	}
	if s.ErrorCode != "" {
		result["error_code"] = s.ErrorCode
	}
	return result
}

// Marshal encodes the snapshot as canonical JSON followed by a newline.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	data, err := ast.MarshalCanonical(s.toCanonicalMap())
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot %s: %w", s.ScenarioName, err)
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenarioName, result)
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}
	newGoldie(t).Assert(t, scenarioName, data)
	return nil
}

// AssertCodeGolden compares compiled output against testdata/golden/{name}.golden.
func AssertCodeGolden(t *testing.T, name, code string) {
	t.Helper()
	newGoldie(t).Assert(t, name, []byte(code))
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(goldenSuffix),
	)
}

// GoldenPath returns the golden file for a scenario under dir.
func GoldenPath(dir, scenarioName string) string {
	return filepath.Join(dir, scenarioName+goldenSuffix)
}

// CheckGolden compares data with the golden file for name under dir,
// outside of go test. With update set, the file is (re)written instead.
// A missing golden file is not an error unless update is set, in which
// case it is created. Returns ErrGoldenMismatch on a difference.
func CheckGolden(dir, name string, data []byte, update bool) error {
	path := GoldenPath(dir, name)
	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		return fmt.Errorf("%w: %s", ErrGoldenMismatch, path)
	}
	return nil
}
