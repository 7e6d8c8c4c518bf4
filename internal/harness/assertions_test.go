package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, SentAt: "08:00:00", From: "S1", To: "T1", Kind: "CFP",
			Body: map[string]any{"store_id": "S1", "round": int64(1),
				"lines": []any{map[string]any{"product_id": "P1", "qty": int64(10)}}}},
		{Seq: 2, SentAt: "08:00:00", From: "T1", To: "S1", Kind: "PROPOSE",
			Body: map[string]any{"store_id": "S1", "round": int64(1), "cost": "17.000"}},
		{Seq: 3, SentAt: "08:00:00", From: "S1", To: "T1", Kind: "ACCEPT",
			Body: map[string]any{"store_id": "S1", "round": int64(1)}},
		{Seq: 4, SentAt: "08:18:40", From: "T1", To: "S1", Kind: "DELIVERY_COMPLETE",
			Body: map[string]any{"store_id": "S1", "qty": int64(10)}},
		{Seq: 5, SentAt: "08:18:40", From: "T1", To: "reporter", Kind: "DELIVERY_COMPLETE",
			Body: map[string]any{"store_id": "S1", "qty": int64(10)}},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Kind: "PROPOSE", Body: map[string]any{"cost": "17.000"}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Kind: "CFP",
		Body: map[string]any{"lines": []any{map[string]any{"product_id": "P1", "qty": 10}}}}),
		"yaml ints match snapshot int64s")
	assert.NoError(t, assertTraceContains(trace, Assertion{Kind: "DELIVERY_COMPLETE", To: "reporter"}))

	err := assertTraceContains(trace, Assertion{Kind: "PROPOSE", Body: map[string]any{"cost": "18.000"}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Contains(t, err.Error(), "Full trace:")

	assert.Error(t, assertTraceContains(trace, Assertion{Kind: "PROPOSE", From: "T2"}))
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Kind: "DELIVERY_COMPLETE", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Kind: "DELIVERY_COMPLETE", To: "S1", Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Kind: "REJECT", Count: 0}))

	err := assertTraceCount(trace, Assertion{Kind: "CFP", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 occurrences")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Kinds: []string{"CFP", "ACCEPT", "DELIVERY_COMPLETE"}}))

	err := assertTraceOrder(trace, Assertion{Kinds: []string{"ACCEPT", "PROPOSE"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Kinds: []string{"CFP", "REJECT"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing kind: REJECT")
}

func TestAssertFinalState(t *testing.T) {
	state := map[string][]Row{
		"stores": {
			{"id": "S1", "phase": "FULFILLED", "delivered": 10},
			{"id": "S2", "phase": "FULFILLED", "delivered": 4},
		},
	}

	assert.NoError(t, assertFinalState(state, Assertion{
		Table: "stores", Where: map[string]any{"id": "S2"}, Expect: map[string]any{"delivered": 4},
	}))

	tests := []struct {
		name    string
		a       Assertion
		wantErr string
	}{
		{"unknown table", Assertion{Table: "trucks", Expect: map[string]any{"x": 1}}, `unknown state table "trucks"`},
		{"no row", Assertion{Table: "stores", Where: map[string]any{"id": "S3"}, Expect: map[string]any{"delivered": 1}}, "row not found"},
		{"ambiguous", Assertion{Table: "stores", Where: map[string]any{"phase": "FULFILLED"}, Expect: map[string]any{"delivered": 10}}, "2 rows matched"},
		{"missing field", Assertion{Table: "stores", Where: map[string]any{"id": "S1"}, Expect: map[string]any{"load": 1}}, `field "load" not present`},
		{"wrong value", Assertion{Table: "stores", Where: map[string]any{"id": "S1"}, Expect: map[string]any{"delivered": 9}}, `field "delivered" = 10`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(state, tt.a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(int64(10), 10))
	assert.True(t, valuesEqual("17.000", "17.000"))
	assert.True(t, valuesEqual(false, false))
	assert.False(t, valuesEqual(int64(10), "10.000"))
	assert.False(t, valuesEqual([]any{int64(1)}, []any{1, 2}))
	assert.False(t, valuesEqual(map[string]any{"a": 1, "b": 2}, map[string]any{"a": 1}),
		"nested maps compare exactly")
	assert.True(t, valuesEqual(nil, nil))
	assert.False(t, valuesEqual(nil, 0))
}

func TestEvaluateAssertions_CollectsEveryFailure(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Kind: "CFP", Count: 1},
		{Type: AssertTraceCount, Kind: "CFP", Count: 5},
		{Type: AssertFinalState, Table: "stores", Expect: map[string]any{"x": 1}},
		{Type: "bogus"},
	})
	assert.Len(t, errs, 3)
}
