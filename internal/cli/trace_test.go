package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wisp/internal/engine"
	"github.com/roach88/wisp/internal/store"
	"github.com/roach88/wisp/internal/testutil"
)

// recordScenarios runs the scenarios in a fresh directory with --db and
// returns the database path.
func recordScenarios(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := testutil.WriteFiles(t, t.TempDir(), scenarios)
	db := filepath.Join(t.TempDir(), "runs.db")
	_, _, _ = execute(t, "test", dir, "--db", db)
	return db
}

func listRuns(t *testing.T, args ...string) []RunListing {
	t.Helper()
	stdout, _, err := execute(t, append([]string{"--format", "json", "trace"}, args...)...)
	require.NoError(t, err)
	var runs []RunListing
	resp := decodeResponse(t, stdout, &runs)
	require.Equal(t, "ok", resp.Status)
	return runs
}

func TestTraceRecordedRun(t *testing.T) {
	db := recordScenarios(t, map[string]string{"counter.yaml": counterScenario})

	runs := listRuns(t, "--db", db)
	require.Len(t, runs, 1)
	assert.Equal(t, "counter", runs[0].Scenario)
	assert.Equal(t, "Counter", runs[0].Component)
	assert.Equal(t, store.StatusPass, runs[0].Status)
	assert.Equal(t, int64(1), runs[0].Seq)

	stdout, _, err := execute(t, "--format", "json", "trace", runs[0].ID, "--db", db)
	require.NoError(t, err)

	var result TraceResult
	decodeResponse(t, stdout, &result)
	assert.Equal(t, runs[0].ID, result.RunID)
	assert.Equal(t, "counter", result.Scenario)
	assert.Equal(t, []TraceEvent{
		{Seq: 1, Step: 1, Kind: engine.TraceMount, Message: "Counter"},
		{Seq: 2, Step: 2, Kind: engine.TraceSet, Message: "count = 2"},
	}, result.Timeline)
	assert.Equal(t, 2, result.Stats.TotalEvents)
	assert.Equal(t, 2, result.Stats.Steps)
	assert.Equal(t, map[string]int{"mount": 1, "set": 1}, result.Stats.ByKind)
}

func TestTraceText(t *testing.T) {
	db := recordScenarios(t, map[string]string{"counter.yaml": counterScenario})
	runs := listRuns(t, "--db", db)
	require.Len(t, runs, 1)

	stdout, _, err := execute(t, "trace", runs[0].ID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Run "+runs[0].ID+": counter (Counter) [pass]")
	assert.Contains(t, stdout, "  step 2\n")
	assert.Contains(t, stdout, "count = 2")
	assert.Contains(t, stdout, "Stats: 2 event(s) over 2 step(s) (mount=1, set=1)")
}

func TestTraceKindFilter(t *testing.T) {
	db := recordScenarios(t, map[string]string{"counter.yaml": counterScenario})
	runs := listRuns(t, "--db", db)
	require.Len(t, runs, 1)

	stdout, _, err := execute(t, "--format", "json", "trace", runs[0].ID, "--db", db, "--kind", "set")
	require.NoError(t, err)

	var result TraceResult
	decodeResponse(t, stdout, &result)
	require.Len(t, result.Timeline, 1)
	assert.Equal(t, "count = 2", result.Timeline[0].Message)
	// Stats describe the whole run.
	assert.Equal(t, 2, result.Stats.TotalEvents)
}

func TestTraceListFilters(t *testing.T) {
	db := recordScenarios(t, map[string]string{
		"counter.yaml": counterScenario,
		"wrong.yaml":   wrongScenario,
	})

	runs := listRuns(t, "--db", db)
	require.Len(t, runs, 2)
	// Newest first.
	assert.Equal(t, "wrong", runs[0].Scenario)
	assert.Equal(t, store.StatusFail, runs[0].Status)

	only := listRuns(t, "--db", db, "--scenario", "counter")
	require.Len(t, only, 1)
	assert.Equal(t, "counter", only[0].Scenario)

	limited := listRuns(t, "--db", db, "--limit", "1")
	assert.Len(t, limited, 1)
}

func TestTraceFailedRunShowsError(t *testing.T) {
	db := recordScenarios(t, map[string]string{"wrong.yaml": wrongScenario})
	runs := listRuns(t, "--db", db)
	require.Len(t, runs, 1)

	stdout, _, err := execute(t, "trace", runs[0].ID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "[fail]")
	assert.Contains(t, stdout, "Assertion failed: html_equals")
}

func TestTraceEmptyDatabase(t *testing.T) {
	db := recordScenarios(t, map[string]string{})

	stdout, _, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded.")
}

func TestTraceUnknownRun(t *testing.T) {
	db := recordScenarios(t, map[string]string{})

	stdout, _, err := execute(t, "--format", "json", "trace", "missing", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp := decodeResponse(t, stdout, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestTraceNonExistentDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "missing.db")

	_, _, err := execute(t, "trace", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
	assert.NoFileExists(t, db)
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, _, err := execute(t, "trace", "some-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}
