package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/convoy/internal/model"
)

func TestNewLedger_Rejects(t *testing.T) {
	_, err := NewLedger("S1", []model.Line{{ProductID: "P1", Qty: 1}, {ProductID: "P1", Qty: 2}})
	assert.Error(t, err)

	_, err = NewLedger("S1", []model.Line{{ProductID: "P1", Qty: 0}})
	assert.Error(t, err)
}

func TestLedger_OrderDeliverRelease(t *testing.T) {
	l, err := NewLedger("S1", []model.Line{{ProductID: "P1", Qty: 10}, {ProductID: "P2", Qty: 3}})
	require.NoError(t, err)
	assert.Equal(t, 13, l.RemainingQty())

	require.NoError(t, l.Order("P1", 6))
	assert.Error(t, l.Order("P1", 5), "only 4 unpromised")
	assert.Error(t, l.Order("PX", 1))

	assert.Equal(t, []model.Line{{ProductID: "P1", Qty: 4}, {ProductID: "P2", Qty: 3}}, l.Remaining())

	assert.Equal(t, 6, l.Deliver("P1", 6, 6))
	line, _ := l.Line("P1")
	assert.Equal(t, 6, line.Delivered)
	assert.Equal(t, 0, line.Ordered)

	require.NoError(t, l.Order("P2", 3))
	assert.Equal(t, 2, l.Release("P2", 2))
	assert.Equal(t, 1, l.Release("P2", 5))
	assert.Equal(t, 0, l.Release("P2", 1))

	assert.False(t, l.AllDelivered())
	assert.Equal(t, 4, l.Deliver("P1", 9, 0), "over-delivery capped")
	assert.Equal(t, 3, l.Deliver("P2", 3, 0))
	assert.True(t, l.AllDelivered())
	require.NoError(t, l.Check())
}
