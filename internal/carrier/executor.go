package carrier

import (
	"fmt"

	"github.com/roach88/convoy/internal/feasibility"
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// activeRoute is the route being driven. Stops before idx are done.
type activeRoute struct {
	plan   Plan
	idx    int
	at     model.TimeOfDay
	pos    model.Position
	leg    *feasibility.Leg // timed leg to Stops[idx], nil between stops
	record model.Route
}

// plan builds a route over the queue and starts it.
func (c *Carrier) plan(now model.TimeOfDay) []message.Outgoing {
	c.needPlan = false
	if len(c.queue) == 0 {
		return nil
	}

	start := model.MaxTime(now, c.nextFree, c.spec.Availability.Start)
	p := BuildRoute(c.params, c.spec, c.catalog, start, c.pos, c.queue)
	out := c.expire(p.Expired)
	if len(p.Stops) == 0 {
		return out
	}

	for _, s := range p.Stops {
		c.removeOrder(s.Order.Key)
	}
	c.routeSeq++
	c.route = &activeRoute{
		plan: p,
		at:   p.Start,
		pos:  p.Origin,
		record: model.Route{
			ID:        fmt.Sprintf("%s-R%d", c.spec.ID, c.routeSeq),
			CarrierID: c.spec.ID,
		},
	}
	c.busy = true
	c.recomputeLoad()

	c.log.Info("route planned", "route", c.route.record.ID, "stops", len(p.Stops), "departure", p.Departure(),
		"return_at", p.ReturnAt, "cost", p.Cost, "leftover", len(p.Leftover))
	return out
}

// advance completes every stop due by now and times the next one.
func (c *Carrier) advance(now model.TimeOfDay) []message.Outgoing {
	r := c.route
	var out []message.Outgoing
	for {
		if r.leg == nil {
			if r.idx >= len(r.plan.Stops) {
				return append(out, c.finish()...)
			}
			order := r.plan.Stops[r.idx].Order
			leg, reason := feasibility.Leg{}, feasibility.TimeWindowPassed
			if store, ok := c.catalog.Store(order.StoreID); ok {
				leg, reason = c.params.PlanLeg(model.MaxTime(r.at, now), r.pos, store, order.TotalQty, c.spec)
			}
			if reason != feasibility.Feasible {
				c.log.Warn("stop infeasible at execution, re-queued", "route", r.record.ID,
					"store", order.StoreID, "reason", reason)
				c.queue = append(c.queue, order)
				c.needPlan = true
				r.idx++
				continue
			}
			if len(r.record.Stops) == 0 {
				r.record.Departure = leg.Departure
			}
			r.leg = &leg
		}

		if now.Before(r.leg.DepartureFromStore) {
			return out
		}

		order := r.plan.Stops[r.idx].Order
		out = append(out, c.complete(r, order, *r.leg)...)
		r.at, r.pos = r.leg.DepartureFromStore, r.leg.To
		r.leg = nil
		r.idx++
		c.recomputeLoad()
	}
}

// complete records a served stop and reports each delivered line to the
// store and to the reporter.
func (c *Carrier) complete(r *activeRoute, order *model.QueuedOrder, leg feasibility.Leg) []message.Outgoing {
	stop := model.Stop{
		StoreID:            order.StoreID,
		Position:           leg.To,
		LegDistance:        leg.Distance,
		Arrival:            leg.Arrival,
		DepartureFromStore: leg.DepartureFromStore,
	}

	out := make([]message.Outgoing, 0, 2*len(order.Lines))
	for _, l := range order.Lines {
		stop.Items = append(stop.Items, model.DeliveryItem{
			ProductID: l.ProductID,
			Qty:       l.Qty,
			Weight:    c.unitWeight(l.ProductID) * float64(l.Qty),
		})
		dc := message.DeliveryComplete{
			StoreID:            order.StoreID,
			ProductID:          l.ProductID,
			Qty:                l.Qty,
			CarrierID:          c.spec.ID,
			Departure:          r.record.Departure,
			Arrival:            leg.Arrival,
			DepartureFromStore: leg.DepartureFromStore,
			LegDistance:        leg.Distance,
			StopX:              leg.To.X,
			StopY:              leg.To.Y,
		}
		out = append(out,
			message.To(order.StoreID, dc),
			message.Broadcast(message.RoleReporter, dc),
		)
	}
	r.record.Stops = append(r.record.Stops, stop)
	delete(c.keys, order.Key)

	c.log.Info("stop served", "route", r.record.ID, "store", order.StoreID, "qty", order.TotalQty,
		"arrival", leg.Arrival, "departure_from_store", leg.DepartureFromStore)
	return out
}

// finish closes the route with the return leg and frees the carrier.
func (c *Carrier) finish() []message.Outgoing {
	r := c.route
	c.route = nil
	c.busy = false
	c.needPlan = len(c.queue) > 0

	if len(r.record.Stops) == 0 {
		c.log.Warn("route ended without deliveries", "route", r.record.ID)
		c.recomputeLoad()
		return nil
	}

	ret := feasibility.Distance(r.pos, c.spec.Depot)
	r.record.ReturnDistance = ret
	r.record.ReturnAt = r.at.Add(c.params.TravelTime(ret))
	r.record.TotalDistance = r.record.ForwardDistance() + ret
	r.record.TotalCost = r.record.ForwardDistance()*c.spec.CostPerKm + ret*c.spec.CostPerKm*feasibility.ReturnLegFactor
	c.routes = append(c.routes, r.record)

	c.pos = c.spec.Depot
	c.nextFree = r.record.ReturnAt
	c.recomputeLoad()

	c.log.Info("route completed", "route", r.record.ID, "stops", len(r.record.Stops),
		"distance", r.record.TotalDistance, "cost", r.record.TotalCost, "return_at", r.record.ReturnAt)
	return nil
}
