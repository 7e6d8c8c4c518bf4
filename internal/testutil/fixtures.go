package testutil

import "github.com/roach88/convoy/internal/model"

// Workday is the 08:00-18:00 window most fixtures use.
var Workday = model.Window{Start: model.At(8, 0, 0), End: model.At(18, 0, 0)}

// Product returns a product with the given unit weight.
func Product(id string, unitWeight float64) model.Product {
	return model.Product{ID: id, Name: id, UnitWeight: unitWeight}
}

// Store returns a store at (x, y) open for the workday.
func Store(id string, x, y float64) model.Store {
	return model.Store{ID: id, Name: id, Position: model.Position{X: x, Y: y}, Window: Workday}
}

// Carrier returns a carrier based at the origin, available for the workday.
func Carrier(id string, capacity, costPerKm float64) model.Carrier {
	return model.Carrier{ID: id, Capacity: capacity, CostPerKm: costPerKm, Availability: Workday}
}

// Lines builds demand lines from alternating product ids and quantities:
// Lines("P1", 10, "P2", 3).
func Lines(pairs ...any) []model.Line {
	if len(pairs)%2 != 0 {
		panic("testutil.Lines: odd number of arguments")
	}
	out := make([]model.Line, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, model.Line{ProductID: pairs[i].(string), Qty: pairs[i+1].(int)})
	}
	return out
}
