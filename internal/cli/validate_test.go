package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/convoy/internal/config"
)

// threeProblems has an inverted window, a duplicate store and a carrier
// reusing a store id.
const threeProblems = `
stores:
  - {id: S1, window: {start: "18:00", end: "08:00"}}
  - {id: S1, window: {start: "08:00", end: "18:00"}}
carriers:
  - {id: S1, capacity: 10}
`

func TestValidateValidFleet(t *testing.T) {
	buf := &bytes.Buffer{}
	err := runValidate(&RootOptions{Format: "text"}, writeFleet(t, t.TempDir()), newTestCommand(buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `✓ Fleet "one-store" valid: 1 products, 1 stores, 1 carriers`)
}

func TestValidateValidFleetJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	err := runValidate(&RootOptions{Format: "json"}, writeFleet(t, t.TempDir()), newTestCommand(buf))
	require.NoError(t, err)

	resp, data := decodeResponse(t, buf.String())
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "one-store", data["fleet"])
	assert.NotEmpty(t, data["config_hash"])
}

func TestValidateCUEFleet(t *testing.T) {
	dir := t.TempDir()
	fleet := writeFile(t, filepath.Join(dir, "fleet.cue"), `
name: "cue-fleet"
products: [{id: "P1", unit_weight: 1}]
stores: [{id: "S1", x: 10, window: {start: "08:00", end: "18:00"}}]
carriers: [{id: "T1", capacity: 10}]
`)
	buf := &bytes.Buffer{}
	require.NoError(t, runValidate(&RootOptions{Format: "text"}, fleet, newTestCommand(buf)))
	assert.Contains(t, buf.String(), `"cue-fleet" valid`)
}

func TestValidateNonExistentFile(t *testing.T) {
	buf := &bytes.Buffer{}
	err := runValidate(&RootOptions{Format: "text"}, filepath.Join(t.TempDir(), "missing.yaml"), newTestCommand(buf))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error ["+ErrCodeNotFound+"]")
}

func TestValidateMultipleErrors(t *testing.T) {
	dir := t.TempDir()
	fleet := writeFile(t, filepath.Join(dir, "bad.yaml"), threeProblems)

	buf := &bytes.Buffer{}
	err := runValidate(&RootOptions{Format: "text"}, fleet, newTestCommand(buf))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "3 error(s)")

	out := buf.String()
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, config.ErrCodeWindow)
	assert.Contains(t, out, config.ErrCodeDuplicate)
}

func TestValidateMultipleErrorsJSON(t *testing.T) {
	dir := t.TempDir()
	fleet := writeFile(t, filepath.Join(dir, "bad.yaml"), threeProblems)

	buf := &bytes.Buffer{}
	err := runValidate(&RootOptions{Format: "json"}, fleet, newTestCommand(buf))
	require.Error(t, err)

	resp, data := decodeResponse(t, buf.String())
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalid, resp.Error.Code)
	assert.Equal(t, false, data["valid"])
	assert.Len(t, data["errors"], 3)
}

func TestValidateSchemaErrorReportsLine(t *testing.T) {
	dir := t.TempDir()
	fleet := writeFile(t, filepath.Join(dir, "typo.yaml"), "nmae: typo\n")

	buf := &bytes.Buffer{}
	err := runValidate(&RootOptions{Format: "text"}, fleet, newTestCommand(buf))
	require.Error(t, err)
	assert.Contains(t, buf.String(), config.ErrCodeParse)
}

func TestValidateVerboseOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := newTestCommand(buf)
	cmd.SetErr(errBuf)

	fleet := writeFleet(t, t.TempDir())
	require.NoError(t, runValidate(&RootOptions{Format: "text", Verbose: true}, fleet, cmd))
	assert.Contains(t, errBuf.String(), "Validating "+fleet)
	assert.Contains(t, errBuf.String(), "config hash")
}
