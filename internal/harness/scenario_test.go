package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: smallest valid scenario
fleet:
  products: [{id: P1, unit_weight: 1}]
  stores: [{id: S1, x: 10, window: {start: "08:00", end: "18:00"}, demand: [{product_id: P1, qty: 1}]}]
  carriers: [{id: T1, capacity: 10}]
assertions:
  - type: trace_count
    kind: CFP
    count: 1
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.False(t, s.Fleet.IsZero())
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertTraceCount, s.Assertions[0].Type)

	fleet, err := s.LoadFleet()
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, fleet.StoreIDs())
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: y\nassertion: []\n",
			wantErr: "field assertion not found",
		},
		{
			name:    "missing name",
			yaml:    "description: y\nfleet_file: f.yaml\nassertions: [{type: trace_count, kind: CFP}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nfleet_file: f.yaml\nassertions: [{type: trace_count, kind: CFP}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no fleet",
			yaml:    "name: x\ndescription: y\nassertions: [{type: trace_count, kind: CFP}]\n",
			wantErr: "fleet or fleet_file is required",
		},
		{
			name:    "both fleets",
			yaml:    "name: x\ndescription: y\nfleet: {name: a}\nfleet_file: f.yaml\nassertions: [{type: trace_count, kind: CFP}]\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "no assertions",
			yaml:    "name: x\ndescription: y\nfleet_file: f.yaml\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "contains without kind",
			yaml:    "name: x\ndescription: y\nfleet_file: f.yaml\nassertions: [{type: trace_contains}]\n",
			wantErr: "kind is required for trace_contains",
		},
		{
			name:    "order without kinds",
			yaml:    "name: x\ndescription: y\nfleet_file: f.yaml\nassertions: [{type: trace_order}]\n",
			wantErr: "kinds list is required",
		},
		{
			name:    "negative count",
			yaml:    "name: x\ndescription: y\nfleet_file: f.yaml\nassertions: [{type: trace_count, kind: CFP, count: -1}]\n",
			wantErr: "count must be non-negative",
		},
		{
			name:    "final state without expect",
			yaml:    "name: x\ndescription: y\nfleet_file: f.yaml\nassertions: [{type: final_state, table: stores}]\n",
			wantErr: "expect is required",
		},
		{
			name:    "unknown type",
			yaml:    "name: x\ndescription: y\nfleet_file: f.yaml\nassertions: [{type: eventually}]\n",
			wantErr: `unknown assertion type "eventually"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_FleetFileRelativeToScenario(t *testing.T) {
	dir := t.TempDir()
	fleet := "products: [{id: P1, unit_weight: 1}]\nstores: [{id: S9, x: 1, window: {start: \"08:00\", end: \"18:00\"}}]\ncarriers: [{id: T1, capacity: 1}]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fleet.yaml"), []byte(fleet), 0o644))
	scenario := "name: x\ndescription: y\nfleet_file: fleet.yaml\nassertions: [{type: trace_count, kind: CFP}]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.yaml"), []byte(scenario), 0o644))

	s, err := LoadScenario(filepath.Join(dir, "s.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fleet.yaml"), s.FleetFile)

	f, err := s.LoadFleet()
	require.NoError(t, err)
	assert.Equal(t, []string{"S9"}, f.StoreIDs())
}

func TestLoadScenario_MissingFleetFile(t *testing.T) {
	dir := t.TempDir()
	scenario := "name: x\ndescription: y\nfleet_file: nope.yaml\nassertions: [{type: trace_count, kind: CFP}]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.yaml"), []byte(scenario), 0o644))

	_, err := LoadScenario(filepath.Join(dir, "s.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fleet file")
}

func TestLoadScenario_NotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
