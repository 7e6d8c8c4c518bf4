package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/convoy/internal/model"
)

func TestOrderKey_IgnoresLineOrder(t *testing.T) {
	a := OrderKey("S1", []model.Line{{ProductID: "P1", Qty: 3}, {ProductID: "P2", Qty: 4}})
	b := OrderKey("S1", []model.Line{{ProductID: "P2", Qty: 4}, {ProductID: "P1", Qty: 3}})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestOrderKey_Distinguishes(t *testing.T) {
	base := OrderKey("S1", []model.Line{{ProductID: "P1", Qty: 3}})

	assert.NotEqual(t, base, OrderKey("S2", []model.Line{{ProductID: "P1", Qty: 3}}))
	assert.NotEqual(t, base, OrderKey("S1", []model.Line{{ProductID: "P1", Qty: 4}}))
	assert.Equal(t, base, OrderKey("S1", []model.Line{{ProductID: "P1", Qty: 1}, {ProductID: "P1", Qty: 2}}))
}

func TestKey_DomainSeparation(t *testing.T) {
	v := map[string]any{"a": 1}
	k1, err := Key(DomainOrder, v)
	require.NoError(t, err)
	k2, err := Key(DomainSnapshot, v)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	_, err = Key(DomainSnapshot, 1.0)
	assert.Error(t, err)
}
