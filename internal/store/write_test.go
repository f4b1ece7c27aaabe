package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/wisp/internal/ast"
	"github.com/roach88/wisp/internal/engine"
	"github.com/roach88/wisp/internal/transform"
)

func TestTransformCache_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := &transform.Result{
		Code:      "export default reactiveElement(A, [\"x\"]);\n",
		UsesI18n:  true,
		I18nKeys:  []string{"hello"},
		Component: "A",
		Props:     []string{"x"},
		Variants:  []string{"suspense"},
		Diagnostics: []transform.Diagnostic{{
			Severity: transform.SeverityWarning,
			Code:     transform.CodeDynamicI18nKey,
			Lines:    []string{"translation keys must be literals", "  t(<key>)"},
			Path:     "a.jsx",
			Loc:      ast.Loc{Line: 2, Column: 3},
		}},
	}

	if _, ok, err := s.GetTransform(ctx, "k1"); err != nil || ok {
		t.Fatalf("GetTransform() before put = ok %v, err %v", ok, err)
	}
	if err := s.PutTransform(ctx, "k1", "a.jsx", want); err != nil {
		t.Fatalf("PutTransform() failed: %v", err)
	}
	// Content-addressed: a second put is a no-op.
	if err := s.PutTransform(ctx, "k1", "a.jsx", &transform.Result{Code: "other"}); err != nil {
		t.Fatalf("second PutTransform() failed: %v", err)
	}

	got, ok, err := s.GetTransform(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("GetTransform() = ok %v, err %v", ok, err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("GetTransform() = %+v, want %+v", got, want)
	}
}

func TestPruneTransforms(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.PutTransform(ctx, "current", "a.jsx", &transform.Result{Code: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec(`
		INSERT INTO transforms (key, path, compiler_version, code, result)
		VALUES ('stale', 'b.jsx', '0.0.1', 'b', '{}')
	`); err != nil {
		t.Fatal(err)
	}

	n, err := s.PruneTransforms(ctx)
	if err != nil {
		t.Fatalf("PruneTransforms() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("PruneTransforms() removed %d rows, want 1", n)
	}
	if _, ok, _ := s.GetTransform(ctx, "current"); !ok {
		t.Error("current transform was pruned")
	}
}

func testTrace() []engine.TraceEvent {
	return []engine.TraceEvent{
		{Seq: 1, Step: 1, Kind: engine.TraceMount, Message: "Counter"},
		{Seq: 2, Step: 1, Kind: engine.TraceLog, Message: "effect 1"},
		{Seq: 3, Step: 2, Kind: engine.TraceSet, Message: "count = 2"},
		{Seq: 4, Step: 2, Kind: engine.TraceLog, Message: "effect 2"},
	}
}

func TestWriteRun_ReadBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := Run{ID: "run-a", Scenario: "counter", Component: "Counter", Status: StatusPass}
	seq, err := s.WriteRun(ctx, run, testTrace())
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("WriteRun() seq = %d, want 1", seq)
	}

	got, err := s.ReadRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	run.Seq = 1
	if got != run {
		t.Errorf("ReadRun() = %+v, want %+v", got, run)
	}

	trace, err := s.ReadTrace(ctx, "run-a")
	if err != nil {
		t.Fatalf("ReadTrace() failed: %v", err)
	}
	if !reflect.DeepEqual(testTrace(), trace) {
		t.Errorf("ReadTrace() = %+v", trace)
	}
}

func TestWriteRun_DuplicateIDRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := Run{ID: "dup", Scenario: "s", Status: StatusFail, Error: "html mismatch"}
	if _, err := s.WriteRun(ctx, run, testTrace()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteRun(ctx, run, testTrace()[:1]); err == nil {
		t.Fatal("second WriteRun() with the same id succeeded")
	}

	trace, err := s.ReadTrace(ctx, "dup")
	if err != nil {
		t.Fatal(err)
	}
	if len(trace) != 4 {
		t.Errorf("len(trace) = %d, want 4", len(trace))
	}
}

func TestWriteRun_RejectsUnknownStatus(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.WriteRun(context.Background(), Run{ID: "x", Scenario: "s", Status: "maybe"}, nil); err == nil {
		t.Fatal("WriteRun() accepted an unknown status")
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRun() error = %v, want ErrNotFound", err)
	}

	trace, err := s.ReadTrace(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if trace == nil || len(trace) != 0 {
		t.Errorf("ReadTrace() = %#v, want empty slice", trace)
	}
}

func TestListRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, r := range []Run{
		{ID: "r1", Scenario: "counter", Status: StatusPass},
		{ID: "r2", Scenario: "toggle", Status: StatusFail},
		{ID: "r3", Scenario: "counter", Status: StatusError},
	} {
		if _, err := s.WriteRun(ctx, r, nil); err != nil {
			t.Fatal(err)
		}
	}

	ids := func(runs []Run) []string {
		out := make([]string, len(runs))
		for i, r := range runs {
			out[i] = r.ID
		}
		return out
	}

	all, err := s.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(all); !reflect.DeepEqual(got, []string{"r3", "r2", "r1"}) {
		t.Errorf("ListRuns() = %v", got)
	}

	counter, err := s.ListRuns(ctx, "counter", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(counter); !reflect.DeepEqual(got, []string{"r3"}) {
		t.Errorf("ListRuns(counter, 1) = %v", got)
	}
}

func TestGetRunSummary(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteRun(ctx, Run{ID: "r", Scenario: "counter", Status: StatusPass}, testTrace()); err != nil {
		t.Fatal(err)
	}

	sum, err := s.GetRunSummary(ctx, "r")
	if err != nil {
		t.Fatalf("GetRunSummary() failed: %v", err)
	}
	if sum.Events != 4 || sum.Steps != 2 || sum.LastStep != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.ByKind[engine.TraceLog] != 2 {
		t.Errorf("log events = %d, want 2", sum.ByKind[engine.TraceLog])
	}
	if got := sum.Kinds(); !reflect.DeepEqual(got, []string{"log", "mount", "set"}) {
		t.Errorf("Kinds() = %v", got)
	}

	if _, err := s.GetRunSummary(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRunSummary(nope) error = %v", err)
	}
}
