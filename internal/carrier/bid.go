package carrier

import (
	"math"

	"github.com/roach88/convoy/internal/feasibility"
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// onCFP evaluates a call for proposals and answers PROPOSE or REFUSE.
func (c *Carrier) onCFP(now model.TimeOfDay, from string, m message.CFP) message.Outgoing {
	refuse := func(r message.RefuseReason) message.Outgoing {
		c.log.Debug("refuse", "store", m.StoreID, "round", m.Round, "reason", r)
		return message.To(from, message.Refuse{StoreID: m.StoreID, Round: m.Round, Reason: r})
	}

	if c.busy {
		return refuse(message.RefuseBusy)
	}
	store, ok := c.catalog.Store(m.StoreID)
	if !ok {
		c.log.Warn("cfp from unknown store", "store", m.StoreID)
		return refuse(message.RefuseStoreNotFound)
	}

	lines, _ := c.fitLines(m.Lines)
	if len(lines) == 0 {
		return refuse(message.RefuseNoCapacity)
	}

	start, origin := c.params.Start(model.MaxTime(now, c.nextFree), c.pos, c.spec)
	leg, reason := c.params.PlanLeg(start, origin, store, model.TotalQty(lines), c.spec)
	if reason != feasibility.Feasible {
		return refuse(message.RefuseFor(reason))
	}

	c.offers[m.StoreID] = offer{round: m.Round, lines: lines, departure: leg.Departure}
	c.log.Debug("propose", "store", m.StoreID, "round", m.Round, "qty", model.TotalQty(lines),
		"cost", leg.Cost, "arrival", leg.Arrival)
	return message.To(from, message.Propose{
		StoreID:            m.StoreID,
		Round:              m.Round,
		Lines:              lines,
		Cost:               leg.Cost,
		Departure:          leg.Departure,
		Arrival:            leg.Arrival,
		DepartureFromStore: leg.DepartureFromStore,
	})
}

// fitLines takes, line by line in request order, as many units as still
// fit the free capacity. Unknown products weigh nothing.
func (c *Carrier) fitLines(req []model.Line) ([]model.Line, float64) {
	free := c.spec.Capacity - c.load
	var (
		out    []model.Line
		weight float64
	)
	for _, l := range req {
		w := c.unitWeight(l.ProductID)
		qty := l.Qty
		if w > 0 {
			qty = min(qty, int(math.Floor((free+weightEpsilon)/w)))
		}
		if qty <= 0 {
			continue
		}
		out = append(out, model.Line{ProductID: l.ProductID, Qty: qty})
		free -= float64(qty) * w
		weight += float64(qty) * w
	}
	return out, weight
}

func (c *Carrier) unitWeight(productID string) float64 {
	w, ok := c.catalog.UnitWeight(productID)
	if !ok {
		c.log.Warn("unknown product, assuming zero weight", "product", productID)
		return 0
	}
	return w
}

func (c *Carrier) linesWeight(lines []model.Line) float64 {
	total := 0.0
	for _, l := range lines {
		total += c.unitWeight(l.ProductID) * float64(l.Qty)
	}
	return total
}
