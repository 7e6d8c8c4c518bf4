package carrier

import (
	"slices"

	"github.com/roach88/convoy/internal/feasibility"
	"github.com/roach88/convoy/internal/model"
)

// Stores resolves store reference data.
type Stores interface {
	Store(id string) (model.Store, bool)
}

// PlannedStop is one chosen order with its timed leg.
type PlannedStop struct {
	Order *model.QueuedOrder
	Leg   feasibility.Leg
}

// Expired is a queued order that cannot be served even as the first stop.
type Expired struct {
	Order  *model.QueuedOrder
	Reason feasibility.Reason
}

// Plan is the output of BuildRoute. It never aliases builder state, so a
// dry run can be discarded freely.
type Plan struct {
	Start          model.TimeOfDay // after any depot return and reload
	Origin         model.Position
	Stops          []PlannedStop
	Leftover       []*model.QueuedOrder
	Expired        []Expired
	ReturnDistance float64
	ReturnAt       model.TimeOfDay
	Cost           float64
}

// Departure is when the carrier leaves for the first stop.
func (p Plan) Departure() model.TimeOfDay {
	if len(p.Stops) == 0 {
		return p.Start
	}
	return p.Stops[0].Leg.Departure
}

// BuildRoute greedily chains queued orders starting at (start, pos).
//
// Each step scores every order that still fits the capacity and is
// time-feasible from the current state, using the bidding score, and takes
// the lowest; ties go to queue order. Orders that are infeasible even as the
// first stop are reported as expired. Anything else not chosen is leftover
// and stays queued.
func BuildRoute(p feasibility.Params, spec model.Carrier, stores Stores, start model.TimeOfDay, pos model.Position, queue []*model.QueuedOrder) Plan {
	at, from := p.Start(start, pos, spec)
	plan := Plan{Start: at, Origin: from}

	var pool []*model.QueuedOrder
	for _, o := range queue {
		s, ok := stores.Store(o.StoreID)
		if !ok {
			plan.Expired = append(plan.Expired, Expired{Order: o, Reason: feasibility.TimeWindowPassed})
			continue
		}
		if _, reason := p.PlanLeg(at, from, s, o.TotalQty, spec); reason != feasibility.Feasible {
			plan.Expired = append(plan.Expired, Expired{Order: o, Reason: reason})
			continue
		}
		pool = append(pool, o)
	}

	load := 0.0
	for len(pool) > 0 {
		var (
			cands []feasibility.Candidate
			legs  []feasibility.Leg
			idx   []int
		)
		for i, o := range pool {
			if load+o.TotalWeight > spec.Capacity+weightEpsilon {
				continue
			}
			s, _ := stores.Store(o.StoreID)
			leg, reason := p.PlanLeg(at, from, s, o.TotalQty, spec)
			if reason != feasibility.Feasible {
				continue
			}
			cands = append(cands, leg.Candidate())
			legs = append(legs, leg)
			idx = append(idx, i)
		}
		best := p.Weights.Best(cands)
		if best < 0 {
			break
		}

		chosen := pool[idx[best]]
		leg := legs[best]
		plan.Stops = append(plan.Stops, PlannedStop{Order: chosen, Leg: leg})
		plan.Cost += leg.Distance * spec.CostPerKm
		load += chosen.TotalWeight
		at, from = leg.DepartureFromStore, leg.To
		pool = slices.Delete(pool, idx[best], idx[best]+1)
	}
	plan.Leftover = pool

	plan.ReturnDistance = feasibility.Distance(from, spec.Depot)
	plan.ReturnAt = at.Add(p.TravelTime(plan.ReturnDistance))
	if len(plan.Stops) > 0 {
		plan.Cost += plan.ReturnDistance * spec.CostPerKm * feasibility.ReturnLegFactor
	} else {
		plan.ReturnDistance = 0
		plan.ReturnAt = plan.Start
	}
	return plan
}
