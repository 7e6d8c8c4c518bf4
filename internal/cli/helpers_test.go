package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/convoy/internal/sim"
)

// oneStoreFleet delivers 10 units 10 km east of the depot: one route of
// 20 km costing 17 with the return discount.
const oneStoreFleet = `
name: one-store
products:
  - {id: P1, unit_weight: 1}
stores:
  - id: S1
    x: 10
    window: {start: "08:00", end: "18:00"}
    demand:
      - {product_id: P1, qty: 10}
carriers:
  - {id: T1, capacity: 100, cost_per_km: 1}
`

const testRunID = "run-1"

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeFleet(t *testing.T, dir string) string {
	t.Helper()
	return writeFile(t, filepath.Join(dir, "fleet.yaml"), oneStoreFleet)
}

// newTestCommand returns a bare command whose output is captured in buf.
func newTestCommand(buf *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd
}

// persistRun simulates the one-store fleet into a fresh database and
// returns the database and fleet paths.
func persistRun(t *testing.T) (dbPath, fleetPath string) {
	t.Helper()
	dir := t.TempDir()
	fleetPath = writeFleet(t, dir)
	dbPath = filepath.Join(dir, "convoy.db")

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		Speedup:     60,
		RunIDs:      sim.NewFixedGenerator(testRunID),
	}
	require.NoError(t, runSimulation(opts, fleetPath, newTestCommand(&bytes.Buffer{})))
	return dbPath, fleetPath
}

// execute runs a fresh root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func decodeResponse(t *testing.T, out string) (CLIResponse, map[string]any) {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	data, _ := resp.Data.(map[string]any)
	return resp, data
}
