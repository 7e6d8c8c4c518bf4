package model

// DeliveryItem is one delivered product line within a stop.
type DeliveryItem struct {
	ProductID string
	Qty       int
	Weight    float64
}

// Stop is one visit of a route. Append-only once recorded.
type Stop struct {
	StoreID            string
	Position           Position
	LegDistance        float64 // from the previous stop, or from the depot
	Arrival            TimeOfDay
	DepartureFromStore TimeOfDay
	Items              []DeliveryItem
}

// Route is the execution record of one chained trip of a carrier.
type Route struct {
	ID             string
	CarrierID      string
	Departure      TimeOfDay // leaves the depot
	Stops          []Stop
	ReturnDistance float64
	ReturnAt       TimeOfDay
	TotalDistance  float64
	TotalCost      float64
}

// ForwardDistance is the distance driven before the return leg.
func (r *Route) ForwardDistance() float64 {
	d := 0.0
	for _, s := range r.Stops {
		d += s.LegDistance
	}
	return d
}
