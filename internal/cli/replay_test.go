package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/convoy/internal/store"
)

func runReplayCommand(t *testing.T, opts *ReplayOptions) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	err := runReplay(opts, newTestCommand(buf))
	return buf.String(), err
}

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, "replay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayNonExistentDatabase(t *testing.T) {
	_, err := runReplayCommand(t, &ReplayOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    filepath.Join(t.TempDir(), "missing.db"),
	})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runReplayCommand(t, &ReplayOptions{RootOptions: &RootOptions{Format: "text"}, Database: dbPath})
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")

	out, err = runReplayCommand(t, &ReplayOptions{RootOptions: &RootOptions{Format: "json"}, Database: dbPath})
	require.NoError(t, err)
	_, data := decodeResponse(t, out)
	assert.Equal(t, true, data["all_ok"])
}

func TestReplayVerifiesStoredHashes(t *testing.T) {
	dbPath, _ := persistRun(t)

	out, err := runReplayCommand(t, &ReplayOptions{
		RootOptions: &RootOptions{Format: "text", Verbose: true},
		Database:    dbPath,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 1 run(s)")
	assert.Contains(t, out, "✓ Run: run-1 (one-store)")
	assert.Contains(t, out, "Messages: 5, status: completed")
	assert.Contains(t, out, "Last seq: 5")
	assert.Contains(t, out, "✓ All runs verified")
}

func TestReplayDetectsCorruption(t *testing.T) {
	dbPath, _ := persistRun(t)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE messages SET hash = 'tampered' WHERE run_id = ? AND seq = 2`, testRunID)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runReplayCommand(t, &ReplayOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    dbPath,
		RunID:       testRunID,
	})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCorrupted, resp.Error.Code)
	runs := data["runs"].([]any)
	require.Len(t, runs, 1)
	assert.Equal(t, []any{float64(2)}, runs[0].(map[string]any)["corrupted"])
}

func TestReplayResimulatesDeterministically(t *testing.T) {
	dbPath, fleetPath := persistRun(t)

	out, err := runReplayCommand(t, &ReplayOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		RunID:       testRunID,
		Fleet:       fleetPath,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Re-simulation matches the stored trace")
}

func TestReplayFleetRequiresRun(t *testing.T) {
	_, err := runReplayCommand(t, &ReplayOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    "unused.db",
		Fleet:       "fleet.yaml",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--fleet requires --run")
}

func TestReplayFleetMismatch(t *testing.T) {
	dbPath, _ := persistRun(t)
	other := writeFile(t, filepath.Join(t.TempDir(), "other.yaml"), strings.Replace(oneStoreFleet, "cost_per_km: 1", "cost_per_km: 2", 1))

	_, err := runReplayCommand(t, &ReplayOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		RunID:       testRunID,
		Fleet:       other,
	})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "does not match run")
}

func TestReplayRunResultOK(t *testing.T) {
	assert.True(t, ReplayRunResult{}.OK())
	assert.True(t, ReplayRunResult{Resimulated: true, Deterministic: true}.OK())
	assert.False(t, ReplayRunResult{Resimulated: true, DivergesAt: 3}.OK())
	assert.False(t, ReplayRunResult{Corrupted: []int64{1}}.OK())
}

func TestReplayHelpText(t *testing.T) {
	out, err := execute(t, "replay", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "content hash")
	assert.Contains(t, out, "Exit codes:")
}
