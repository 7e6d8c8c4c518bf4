package harness

import (
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/convoy/internal/carrier"
	"github.com/roach88/convoy/internal/config"
	"github.com/roach88/convoy/internal/model"
	"github.com/roach88/convoy/internal/negotiation"
)

func scenarioFiles(t *testing.T) []string {
	t.Helper()
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	return files
}

func TestScenarios(t *testing.T) {
	for _, path := range scenarioFiles(t) {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors:\n%v", result.Errors)
			assert.True(t, result.Run.Quiescent)
		})
	}
}

func TestRun_TraceIsSeqOrdered(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/e_two_stop_route.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotEmpty(t, result.Trace)
	for i := 1; i < len(result.Trace); i++ {
		assert.Greater(t, result.Trace[i].Seq, result.Trace[i-1].Seq)
	}
	assert.Equal(t, int64(len(result.Trace)), result.Run.Messages)
}

func TestRun_FailingAssertionIsReported(t *testing.T) {
	scenario, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)
	scenario.Assertions = append(scenario.Assertions, Assertion{
		Type: AssertFinalState, Table: "stores", Where: map[string]any{"id": "S1"},
		Expect: map[string]any{"phase": "NO_ORDER"},
	})

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `field "phase" = FULFILLED`)
}

func TestRun_InvalidFleet(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad
description: carrier with no capacity
fleet:
  carriers: [{id: T1, capacity: 0}]
assertions: [{type: trace_count, kind: CFP}]
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load fleet")
}

// Two runs of the same scenario must produce byte-identical traces. The
// first run writes a golden file into a scratch directory, the second is
// compared against it.
func TestRun_DeterministicReplay(t *testing.T) {
	for _, path := range scenarioFiles(t) {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			dir := goldie.WithFixtureDir(t.TempDir())

			first, err := Run(scenario)
			require.NoError(t, err)
			require.NoError(t, UpdateGolden(t, scenario.Name, first, dir))

			_, err = RunWithGolden(t, scenario, dir)
			require.NoError(t, err)
		})
	}
}

func TestTraceBytes(t *testing.T) {
	data, err := TraceBytes("demo", sampleTrace()[:1])
	require.NoError(t, err)
	assert.Equal(t,
		`{"events":1,"scenario_name":"demo"}`+"\n"+
			`{"body":{"lines":[{"product_id":"P1","qty":10}],"round":1,"store_id":"S1"},"from":"S1","kind":"CFP","sent_at":"08:00:00","seq":1,"to":"T1"}`+"\n",
		string(data))
}

func TestCheckProperties(t *testing.T) {
	fleet, err := config.Parse("f.yaml", []byte(`
products: [{id: P1, unit_weight: 1}]
stores: [{id: S1, x: 10, window: {start: "09:00", end: "10:00"}, demand: [{product_id: P1, qty: 10}]}]
carriers: [{id: T1, capacity: 5}]
`))
	require.NoError(t, err)

	stores := []negotiation.Snapshot{{
		StoreID: "S1",
		Phase:   negotiation.PhaseFulfilled,
		Lines:   []model.DemandLine{{ProductID: "P1", Requested: 10, Delivered: 8, Ordered: 3}},
	}}
	carriers := []carrier.Snapshot{{CarrierID: "T1", Capacity: 5, Load: 6}}
	trace := []TraceEvent{{
		Seq: 1, From: "T1", To: "S1", Kind: "DELIVERY_COMPLETE",
		Body: map[string]any{
			"store_id": "S1", "product_id": "P1", "carrier_id": "T1", "qty": int64(8),
			"arrival": "08:50:00", "departure_from_store": "08:56:00",
		},
	}}

	var props []string
	for _, v := range CheckProperties(fleet, stores, carriers, trace) {
		props = append(props, v.Property)
	}
	assert.ElementsMatch(t, []string{
		PropStopWindow,
		PropDemandBound,
		PropDeliveredSum,
		PropLoadBound,
		PropLoadDrained,
	}, props)
}

func TestCheckProperties_CleanRun(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/b_split_capacity.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	for _, e := range result.Errors {
		assert.NotContains(t, e, "property")
	}
}
