package carrier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

func TestCarrier_AcceptQueuesAndNotifies(t *testing.T) {
	c := newCarrier(t)
	c.Handle(t0800, cfp("S1", lines("P1", 10)...))

	out := c.Handle(t0800, accept("S1", lines("P1", 10)...))
	require.Len(t, out, 2)

	assert.Equal(t, message.RoleCarrier, out[0].Role)
	upd, ok := out[0].Body.(message.ScheduleUpdated)
	require.True(t, ok)
	assert.Equal(t, message.ScheduleUpdated{CarrierID: "T1", AcceptedStoreID: "S1", Weight: 10, Qty: 10}, upd)

	assert.Equal(t, message.RoleStore, out[1].Role)
	assert.Equal(t, []string{"S1"}, out[1].Exclude)
	chg, ok := out[1].Body.(message.ScheduleChanged)
	require.True(t, ok)
	// 08:00 + 12m drive + 6m40s service + 12m back.
	assert.Equal(t, model.At(8, 30, 40), chg.NextFree)

	snap := c.Snapshot()
	assert.Empty(t, snap.Offers)
	require.Len(t, snap.Queue, 1)
	assert.InDelta(t, 10.0, snap.Load, 1e-9)
	assert.Equal(t, 10, snap.Queue[0].TotalQty)
}

func TestCarrier_DuplicateAcceptIgnored(t *testing.T) {
	c := newCarrier(t)
	c.Handle(t0800, accept("S1", lines("P1", 4, "P2", 2)...))

	// Same order with lines reordered has the same canonical key.
	assert.Empty(t, c.Handle(t0800, accept("S1", lines("P2", 2, "P1", 4)...)))

	snap := c.Snapshot()
	assert.Len(t, snap.Queue, 1)
	assert.InDelta(t, 14.0, snap.Load, 1e-9)
}

func TestCarrier_AcceptOverCapacityHandsBack(t *testing.T) {
	c := newCarrier(t)
	c.Handle(t0800, accept("S1", lines("P2", 15)...))

	r := refusal(t, only(t, c.Handle(t0800, accept("S2", lines("P2", 6)...))))
	assert.Equal(t, message.RefuseNoCapacity, r.Reason)
	assert.True(t, r.Handback())
	assert.Equal(t, lines("P2", 6), r.Lines)

	snap := c.Snapshot()
	assert.Len(t, snap.Queue, 1)
	assert.InDelta(t, 75.0, snap.Load, 1e-9)
}

func TestCarrier_AcceptUnknownStoreHandsBack(t *testing.T) {
	c := newCarrier(t)
	r := refusal(t, only(t, c.Handle(t0800, accept("S9", lines("P1", 1)...))))
	assert.Equal(t, message.RefuseStoreNotFound, r.Reason)
	assert.True(t, r.Handback())
	assert.Empty(t, c.Snapshot().Queue)
}

func TestCarrier_PeerNoticeWithdrawsOffer(t *testing.T) {
	c := newCarrier(t)
	c.Handle(t0800, cfp("S1", lines("P1", 10)...))
	c.Handle(t0800, cfp("S2", lines("P1", 10)...))

	notice := message.ScheduleUpdated{CarrierID: "T2", AcceptedStoreID: "S1", Weight: 10, Qty: 10}
	assert.Empty(t, c.Handle(t0800, env("T2", notice)))
	assert.Empty(t, c.Handle(t0800, env("T2", notice)))

	snap := c.Snapshot()
	assert.Equal(t, []string{"S2"}, snap.Offers)
	assert.Equal(t, PeerView{AcceptedStoreID: "S1", Weight: 10, Qty: 10}, snap.Peers["T2"])
}

func TestCarrier_RejectDropsOffer(t *testing.T) {
	c := newCarrier(t)
	c.Handle(t0800, cfp("S1", lines("P1", 10)...))

	c.Handle(t0800, env("S1", message.Reject{StoreID: "S1", Round: 1, Reason: message.RejectCheaperOfferSelected}))
	assert.Empty(t, c.Snapshot().Offers)
}
