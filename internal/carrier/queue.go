package carrier

import (
	"github.com/roach88/convoy/internal/canon"
	"github.com/roach88/convoy/internal/feasibility"
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// onAccept queues the order and notifies peers and other stores.
func (c *Carrier) onAccept(now model.TimeOfDay, from string, m message.Accept) []message.Outgoing {
	key := canon.OrderKey(m.StoreID, m.Lines)
	if c.keys[key] {
		c.log.Debug("duplicate accept dropped", "store", m.StoreID, "round", m.Round)
		return nil
	}
	delete(c.offers, m.StoreID)

	handback := func(r message.RefuseReason) []message.Outgoing {
		c.log.Warn("cannot take accepted order", "store", m.StoreID, "reason", r)
		return []message.Outgoing{message.To(from, message.Refuse{
			StoreID: m.StoreID, Round: m.Round, Reason: r, Lines: model.CloneLines(m.Lines),
		})}
	}

	if _, ok := c.catalog.Store(m.StoreID); !ok {
		return handback(message.RefuseStoreNotFound)
	}
	weight := c.linesWeight(m.Lines)
	if c.load+weight > c.spec.Capacity+weightEpsilon {
		return handback(message.RefuseNoCapacity)
	}

	order := &model.QueuedOrder{
		Key:         key,
		StoreID:     m.StoreID,
		Lines:       model.CloneLines(m.Lines),
		TotalWeight: weight,
		TotalQty:    model.TotalQty(m.Lines),
		AcceptedAt:  now,
	}
	c.queue = append(c.queue, order)
	c.keys[key] = true
	c.needPlan = true
	c.recomputeLoad()

	c.log.Info("order queued", "store", m.StoreID, "qty", order.TotalQty, "weight", weight,
		"load", c.load, "queue", len(c.queue))
	return c.notifyAccepted(now, order)
}

// removeOrder drops an order from the queue by key.
func (c *Carrier) removeOrder(key string) {
	for i, o := range c.queue {
		if o.Key == key {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return
		}
	}
}

// expire drops hopeless orders and hands them back to their stores.
func (c *Carrier) expire(expired []Expired) []message.Outgoing {
	var out []message.Outgoing
	for _, e := range expired {
		c.removeOrder(e.Order.Key)
		delete(c.keys, e.Order.Key)

		reason := message.RefuseFor(e.Reason)
		if e.Reason == feasibility.Feasible {
			reason = message.RefuseTimeWindowPassed
		}
		c.log.Warn("order expired", "store", e.Order.StoreID, "qty", e.Order.TotalQty, "reason", reason)
		out = append(out, message.To(e.Order.StoreID, message.Refuse{
			StoreID: e.Order.StoreID,
			Reason:  reason,
			Lines:   model.CloneLines(e.Order.Lines),
		}))
	}
	c.recomputeLoad()
	return out
}
