package reporting

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/convoy/internal/feasibility"
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// samePlace is the tolerance for merging stops by position.
const samePlace = 0.01

// Reference is the catalog data the ledger enriches deliveries with.
type Reference interface {
	Store(id string) (model.Store, bool)
	Carrier(id string) (model.Carrier, bool)
	UnitWeight(productID string) (float64, bool)
}

// defaultCarrier stands in for a carrier missing from the reference data.
func defaultCarrier(id string) model.Carrier {
	return model.Carrier{
		ID:           id,
		Capacity:     1,
		Availability: model.Window{Start: model.At(8, 0, 0), End: model.At(18, 0, 0)},
	}
}

type routeKey struct {
	carrierID string
	departure model.TimeOfDay
}

// Ledger accumulates executed routes. Not safe for concurrent use.
type Ledger struct {
	ref    Reference
	params feasibility.Params
	log    *slog.Logger

	routes []*model.Route
	index  map[routeKey]*model.Route
	lines  int
}

// NewLedger creates an empty ledger.
func NewLedger(ref Reference, params feasibility.Params) *Ledger {
	return &Ledger{
		ref:    ref,
		params: params,
		log:    slog.Default().With("component", "reporting"),
		index:  make(map[routeKey]*model.Route),
	}
}

// Record adds one delivered line.
func (l *Ledger) Record(dc message.DeliveryComplete) error {
	if err := dc.Validate(); err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}

	carrier, ok := l.ref.Carrier(dc.CarrierID)
	if !ok {
		l.log.Warn("unknown carrier, using zero cost and origin depot", "carrier", dc.CarrierID)
		carrier = defaultCarrier(dc.CarrierID)
	}
	weight, ok := l.ref.UnitWeight(dc.ProductID)
	if !ok {
		l.log.Warn("unknown product, weight counted as zero", "product", dc.ProductID)
	}

	key := routeKey{carrierID: dc.CarrierID, departure: dc.Departure}
	route, ok := l.index[key]
	if !ok {
		route = &model.Route{
			ID:        fmt.Sprintf("ROUTE_%d", len(l.routes)+1),
			CarrierID: dc.CarrierID,
			Departure: dc.Departure,
		}
		l.index[key] = route
		l.routes = append(l.routes, route)
	}

	pos := l.stopPosition(dc)
	stop := findStop(route, dc.StoreID, pos)
	if stop == nil {
		legDist := dc.LegDistance
		if legDist <= 0 {
			prev := carrier.Depot
			if n := len(route.Stops); n > 0 {
				prev = route.Stops[n-1].Position
			}
			legDist = feasibility.Distance(prev, pos)
		}
		route.Stops = append(route.Stops, model.Stop{
			StoreID:            dc.StoreID,
			Position:           pos,
			LegDistance:        legDist,
			Arrival:            dc.Arrival,
			DepartureFromStore: dc.DepartureFromStore,
		})
		stop = &route.Stops[len(route.Stops)-1]
	}
	stop.Items = append(stop.Items, model.DeliveryItem{
		ProductID: dc.ProductID,
		Qty:       dc.Qty,
		Weight:    weight * float64(dc.Qty),
	})
	l.lines++

	l.total(route, carrier)
	l.log.Debug("delivery recorded", "route", route.ID, "carrier", dc.CarrierID, "store", dc.StoreID,
		"product", dc.ProductID, "qty", dc.Qty)
	return nil
}

// stopPosition prefers the position reported by the carrier and falls back
// to the catalog, then to the origin.
func (l *Ledger) stopPosition(dc message.DeliveryComplete) model.Position {
	if pos := dc.Stop(); pos != (model.Position{}) {
		return pos
	}
	if s, ok := l.ref.Store(dc.StoreID); ok {
		return s.Position
	}
	l.log.Warn("unknown store without reported position, using origin", "store", dc.StoreID)
	return model.Position{}
}

func findStop(r *model.Route, storeID string, pos model.Position) *model.Stop {
	for i := range r.Stops {
		s := &r.Stops[i]
		if s.StoreID == storeID && math.Abs(s.Position.X-pos.X) < samePlace && math.Abs(s.Position.Y-pos.Y) < samePlace {
			return s
		}
	}
	return nil
}

// total recomputes distance, cost and return time of a route.
func (l *Ledger) total(r *model.Route, carrier model.Carrier) {
	last := r.Stops[len(r.Stops)-1]
	r.ReturnDistance = feasibility.Distance(last.Position, carrier.Depot)
	r.ReturnAt = last.DepartureFromStore.Add(l.params.TravelTime(r.ReturnDistance))

	fwd := r.ForwardDistance()
	r.TotalDistance = fwd + r.ReturnDistance
	r.TotalCost = fwd*carrier.CostPerKm + r.ReturnDistance*carrier.CostPerKm*feasibility.ReturnLegFactor
}

// Routes returns a copy of the ledger in first-delivery order.
func (l *Ledger) Routes() []model.Route {
	out := make([]model.Route, 0, len(l.routes))
	for _, r := range l.routes {
		c := *r
		c.Stops = slices.Clone(r.Stops)
		for i := range c.Stops {
			c.Stops[i].Items = slices.Clone(r.Stops[i].Items)
		}
		out = append(out, c)
	}
	return out
}

// Summary is the fleet-wide total of a ledger.
type Summary struct {
	Routes        int
	Deliveries    int // delivered lines
	TotalDistance decimal.Decimal
	TotalCost     decimal.Decimal
}

// Summarize totals routes with decimal arithmetic so reports add up to the
// cent regardless of float rounding.
func Summarize(routes []model.Route) Summary {
	s := Summary{Routes: len(routes), TotalDistance: decimal.Zero, TotalCost: decimal.Zero}
	for _, r := range routes {
		s.TotalDistance = s.TotalDistance.Add(decimal.NewFromFloat(r.TotalDistance).Round(2))
		s.TotalCost = s.TotalCost.Add(decimal.NewFromFloat(r.TotalCost).Round(2))
		for _, st := range r.Stops {
			s.Deliveries += len(st.Items)
		}
	}
	return s
}

// Summary totals the current ledger.
func (l *Ledger) Summary() Summary {
	return Summarize(l.Routes())
}
