package feasibility

import "github.com/roach88/convoy/internal/model"

// Reason explains why a leg cannot be driven. The zero value means feasible.
type Reason string

// Infeasibility reasons. They share spelling with the REFUSE reason codes.
const (
	Feasible         Reason = ""
	TimeWindowPassed Reason = "TIME_WINDOW_PASSED"
	NoTimeWindow     Reason = "NO_TIME_WINDOW"
)

// Leg is a fully timed visit of one store, starting from a known point.
type Leg struct {
	StoreID            string
	From               model.Position
	To                 model.Position
	Distance           float64 // outbound distance
	ReturnDistance     float64 // store back to depot
	Travel             int64
	Wait               int64
	Service            int64
	Departure          model.TimeOfDay // leaves From
	Arrival            model.TimeOfDay // service starts
	DepartureFromStore model.TimeOfDay
	Cost               float64
	Latency            int64 // Arrival - earliest start
}

// Candidate returns the cost/time pair used for scoring.
func (l Leg) Candidate() Candidate {
	return Candidate{Cost: l.Cost, Time: float64(l.Latency)}
}

// Start positions a carrier for its next outbound leg. If the carrier is away
// from its depot it first drives back and reloads.
func (p Params) Start(earliest model.TimeOfDay, pos model.Position, c model.Carrier) (model.TimeOfDay, model.Position) {
	if pos.Equal(c.Depot) {
		return earliest, c.Depot
	}
	back := p.TravelTime(Distance(pos, c.Depot))
	return earliest.Add(back + p.LoadingTime()), c.Depot
}

// PlanLeg times a visit of store starting no earlier than start from the
// given point. Early arrivals wait for the store window to open.
//
// Order of checks:
//  1. arrival after the store window end        -> TIME_WINDOW_PASSED
//  2. departure before carrier availability     -> NO_TIME_WINDOW
//  3. service ends after the store window end   -> TIME_WINDOW_PASSED
//  4. service ends after carrier availability   -> NO_TIME_WINDOW
func (p Params) PlanLeg(start model.TimeOfDay, from model.Position, store model.Store, itemCount int, c model.Carrier) (Leg, Reason) {
	d := Distance(from, store.Position)
	travel := p.TravelTime(d)

	arrival := start.Add(travel)
	wait := int64(0)
	if arrival.Before(store.Window.Start) {
		wait = store.Window.Start.Sub(arrival)
		arrival = store.Window.Start
	}

	leg := Leg{
		StoreID:        store.ID,
		From:           from,
		To:             store.Position,
		Distance:       d,
		ReturnDistance: Distance(store.Position, c.Depot),
		Travel:         travel,
		Wait:           wait,
		Arrival:        arrival,
		Departure:      arrival.Add(-travel),
		Latency:        arrival.Sub(start),
	}

	if arrival.After(store.Window.End) {
		return leg, TimeWindowPassed
	}
	if leg.Departure.Before(c.Availability.Start) {
		return leg, NoTimeWindow
	}

	leg.Service = p.ServiceTime(itemCount)
	leg.DepartureFromStore = arrival.Add(leg.Service)
	if leg.DepartureFromStore.After(store.Window.End) {
		return leg, TimeWindowPassed
	}
	if leg.DepartureFromStore.After(c.Availability.End) {
		return leg, NoTimeWindow
	}

	leg.Cost = LegCost(leg.Distance, leg.ReturnDistance, c.CostPerKm)
	return leg, Feasible
}
