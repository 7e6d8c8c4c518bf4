package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: one_delivery
description: one store, one carrier
fleet_file: fleets/one.yaml
assertions:
  - type: trace_count
    kind: CFP
    count: 1
  - type: final_state
    table: stores
    where: {id: S1}
    expect: {phase: FULFILLED}
`

const failingScenario = `
name: wrong_count
description: expects a second call for proposals
fleet_file: fleets/one.yaml
assertions:
  - type: trace_count
    kind: CFP
    count: 2
`

func scenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "fleets", "one.yaml"), oneStoreFleet)
	for name, src := range scenarios {
		writeFile(t, filepath.Join(dir, name), src)
	}
	return dir
}

func runTestCommand(t *testing.T, opts *TestOptions, dir string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	err := runTests(opts, dir, newTestCommand(buf))
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, &TestOptions{RootOptions: &RootOptions{Format: "json"}}, t.TempDir())
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(0), data["total"])
}

func TestTestCommandPassingScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"one.yaml": passingScenario})

	out, err := runTestCommand(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ one_delivery")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"a.yaml": passingScenario,
		"b.yaml": failingScenario,
	})

	out, err := runTestCommand(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "2 occurrences of CFP")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"b.yaml": failingScenario})

	out, err := runTestCommand(t, &TestOptions{RootOptions: &RootOptions{Format: "json"}}, dir)
	require.Error(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, float64(1), data["failed"])
}

func TestTestCommandLoadError(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "name: [unclosed\n"})

	out, err := runTestCommand(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "Load error")
}

func TestTestCommandGoldenRoundTrip(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"one.yaml": passingScenario})
	golden := filepath.Join(dir, "golden", "one.golden")

	out, err := runTestCommand(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}, Update: true}, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ one_delivery (golden updated)")
	require.FileExists(t, golden)

	_, err = runTestCommand(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir)
	require.NoError(t, err, "a fresh run must match its own golden trace")

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
	out, err = runTestCommand(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"a.yaml":          passingScenario,
		"b.yml":           passingScenario,
		"notes.txt":       "ignored",
		"nested/c.yaml":   passingScenario,
		"golden/one.yaml": "not a scenario",
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files, "fleets/ and golden/ are skipped")
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"b_split.yaml": passingScenario,
		"b_cheap.yaml": passingScenario,
		"c_other.yaml": passingScenario,
	})

	files, err := findScenarioFiles(dir, "b_*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "a_single.golden"),
		goldenFilePath(filepath.Join("scenarios", "a_single.yaml")))
}

func TestTestHelpText(t *testing.T) {
	out, err := execute(t, "test", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "golden/<name>.golden")
	assert.Contains(t, out, "--filter")
}
