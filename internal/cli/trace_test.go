package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

func runTraceCommand(t *testing.T, opts *TraceOptions) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	err := runTrace(opts, newTestCommand(buf))
	return buf.String(), err
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, err := runTraceCommand(t, &TraceOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    filepath.Join(t.TempDir(), "missing.db"),
	})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestTraceUnknownKind(t *testing.T) {
	_, err := runTraceCommand(t, &TraceOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    "unused.db",
		Kind:        "BID",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown message kind "BID"`)
}

func TestTraceRunNotFound(t *testing.T) {
	dbPath, _ := persistRun(t)

	_, err := runTraceCommand(t, &TraceOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		RunID:       "nope",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: nope")
}

func TestTraceLatestRun(t *testing.T) {
	dbPath, _ := persistRun(t)

	out, err := runTraceCommand(t, &TraceOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-1 (one-store, completed)")
	assert.Contains(t, out, "[1] 08:00:00 CFP")
	assert.Contains(t, out, "S1 -> T1")
	assert.Contains(t, out, "5 message(s): ACCEPT=1 CFP=1 DELIVERY_COMPLETE=2 PROPOSE=1")
}

func TestTraceVerboseShowsBodies(t *testing.T) {
	dbPath, _ := persistRun(t)

	out, err := runTraceCommand(t, &TraceOptions{
		RootOptions: &RootOptions{Format: "text", Verbose: true},
		Database:    dbPath,
		Kind:        "propose",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "cost=17.000")
	assert.Contains(t, out, "1 message(s): PROPOSE=1")
}

func TestTraceJSONWithKindFilter(t *testing.T) {
	dbPath, _ := persistRun(t)

	out, err := runTraceCommand(t, &TraceOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    dbPath,
		RunID:       testRunID,
		Kind:        "DELIVERY_COMPLETE",
	})
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, testRunID, resp.RunID)
	timeline, ok := data["timeline"].([]any)
	require.True(t, ok)
	require.Len(t, timeline, 2)
	first := timeline[0].(map[string]any)
	assert.Equal(t, "DELIVERY_COMPLETE", first["kind"])
	body := first["body"].(map[string]any)
	assert.Equal(t, "08:12:00", body["arrival"])
	assert.Equal(t, "08:18:40", body["departure_from_store"])
}

func TestTraceActorFilter(t *testing.T) {
	dbPath, _ := persistRun(t)

	out, err := runTraceCommand(t, &TraceOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		Actor:       "reporter",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "1 message(s): DELIVERY_COMPLETE=1")
	assert.NotContains(t, out, "CFP")
}

func TestBuildTimeline(t *testing.T) {
	envs := []message.Envelope{
		{Seq: 1, SentAt: model.At(8, 0, 0), From: "S1", To: "T1",
			Body: message.CFP{StoreID: "S1", Round: 1, Lines: []model.Line{{ProductID: "P1", Qty: 10}}}},
		{Seq: 2, SentAt: model.At(8, 0, 0), From: "S1", To: "T2",
			Body: message.CFP{StoreID: "S1", Round: 1, Lines: []model.Line{{ProductID: "P1", Qty: 10}}}},
	}

	timeline, err := buildTimeline(envs, "T2")
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, int64(2), timeline[0].Seq)
	assert.Equal(t, "08:00:00", timeline[0].SentAt)
	assert.Equal(t, "CFP", timeline[0].Kind)
	assert.Equal(t, "S1", timeline[0].Body["store_id"])

	empty, err := buildTimeline(nil, "")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestFormatBody(t *testing.T) {
	assert.Equal(t, "a=1 b=x", formatBody(map[string]any{"b": "x", "a": 1}))
	assert.Equal(t, "", formatBody(nil))
}
