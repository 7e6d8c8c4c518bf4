package carrier

import (
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// notifyAccepted publishes one notice to the other carriers and one to the
// other stores. Recipients recompute from it; they never apply deltas.
func (c *Carrier) notifyAccepted(now model.TimeOfDay, order *model.QueuedOrder) []message.Outgoing {
	return []message.Outgoing{
		message.Broadcast(message.RoleCarrier, message.ScheduleUpdated{
			CarrierID:       c.spec.ID,
			AcceptedStoreID: order.StoreID,
			Weight:          order.TotalWeight,
			Qty:             order.TotalQty,
		}),
		message.Broadcast(message.RoleStore, message.ScheduleChanged{
			CarrierID:       c.spec.ID,
			AcceptedStoreID: order.StoreID,
			Weight:          order.TotalWeight,
			Qty:             order.TotalQty,
			NextFree:        c.EstimateNextFree(now),
		}, order.StoreID),
	}
}

// EstimateNextFree dry-runs the route builder over the queue, after the
// active route if there is one.
func (c *Carrier) EstimateNextFree(now model.TimeOfDay) model.TimeOfDay {
	at := model.MaxTime(now, c.nextFree, c.spec.Availability.Start)
	pos := c.pos
	if c.route != nil {
		at, pos = model.MaxTime(at, c.route.plan.ReturnAt), c.spec.Depot
	}
	return BuildRoute(c.params, c.spec, c.catalog, at, pos, c.queue).ReturnAt
}

// onScheduleUpdated withdraws this carrier's offer to the store a peer just
// won and remembers the peer's latest commitment.
func (c *Carrier) onScheduleUpdated(m message.ScheduleUpdated) {
	if m.CarrierID == c.spec.ID {
		return
	}
	if _, ok := c.offers[m.AcceptedStoreID]; ok {
		delete(c.offers, m.AcceptedStoreID)
		c.log.Info("offer withdrawn", "store", m.AcceptedStoreID, "winner", m.CarrierID)
	}
	c.peers[m.CarrierID] = PeerView{AcceptedStoreID: m.AcceptedStoreID, Weight: m.Weight, Qty: m.Qty}
}

func (c *Carrier) onReject(from string, m message.Reject) {
	if o, ok := c.offers[m.StoreID]; ok && o.round == m.Round {
		delete(c.offers, m.StoreID)
	}
	c.log.Debug("rejected", "store", m.StoreID, "from", from, "round", m.Round, "reason", m.Reason)
}
