package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/roach88/convoy/internal/canon"
	"github.com/roach88/convoy/internal/feasibility"
	"github.com/roach88/convoy/internal/model"
	"github.com/roach88/convoy/internal/negotiation"
	"github.com/roach88/convoy/internal/sim"
)

// Fleet is a resolved configuration, ready to run.
type Fleet struct {
	Name                string
	Start               model.TimeOfDay
	Horizon             model.TimeOfDay
	Params              feasibility.Params
	Negotiation         negotiation.Config
	MaxCyclesPerInstant int

	Products []model.Product
	Stores   []model.Store
	Carriers []model.Carrier
	Demand   map[string][]model.Line // by store id
	Catalog  *model.Catalog

	// Hash is the content key of the resolved configuration. Formatting,
	// comments and omitted defaults do not change it.
	Hash string
}

// RuntimeOptions returns the scheduler options for this fleet.
func (f *Fleet) RuntimeOptions() []sim.Option {
	return []sim.Option{
		sim.WithStart(f.Start),
		sim.WithHorizon(f.Horizon),
		sim.WithMaxCyclesPerInstant(f.MaxCyclesPerInstant),
	}
}

// Build checks cross-references and converts a decoded file. Every problem
// is reported, not just the first.
func (f *File) Build() (*Fleet, error) {
	var errs Errors
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}
	parseTime := func(field, s string) model.TimeOfDay {
		t, err := model.ParseTimeOfDay(s)
		if err != nil {
			add(ErrCodeSchema, field, "%v", err)
		}
		return t
	}
	parseWindow := func(field string, w *WindowFile) model.Window {
		if w == nil {
			add(ErrCodeSchema, field, "window is required")
			return model.Window{}
		}
		win := model.Window{Start: parseTime(field+".start", w.Start), End: parseTime(field+".end", w.End)}
		if !win.Valid() {
			add(ErrCodeWindow, field, "window %s ends before it starts", win)
		}
		return win
	}

	fleet := &Fleet{
		Name:    f.Name,
		Start:   parseTime("start", f.Start),
		Horizon: parseTime("horizon", f.Horizon),
		Params: feasibility.Params{
			SpeedKmH:              deref(f.Model.SpeedKmH, feasibility.DefaultSpeedKmH),
			ServiceBaseSeconds:    deref(f.Model.ServiceBaseSeconds, feasibility.DefaultServiceBaseSeconds),
			ServicePerItemSeconds: deref(f.Model.ServicePerItemSeconds, feasibility.DefaultServicePerItemSeconds),
			LoadingSeconds:        deref(f.Model.LoadingSeconds, feasibility.DefaultLoadingSeconds),
			Weights: feasibility.Weights{
				Cost: deref(f.Model.CostWeight, feasibility.DefaultCostWeight),
				Time: deref(f.Model.TimeWeight, feasibility.DefaultTimeWeight),
			},
		},
		Negotiation: negotiation.Config{
			CollectionWindow: deref(f.Negotiation.CollectionWindow, negotiation.DefaultCollectionWindow),
			RetryInterval:    deref(f.Negotiation.RetryInterval, negotiation.DefaultRetryInterval),
		},
		MaxCyclesPerInstant: deref(f.Runtime.MaxCyclesPerInstant, sim.DefaultMaxCyclesPerInstant),
		Demand:              make(map[string][]model.Line),
	}
	fleet.Negotiation.Weights = fleet.Params.Weights

	if fleet.Horizon.Before(fleet.Start) {
		add(ErrCodeWindow, "horizon", "horizon %s is before start %s", fleet.Horizon, fleet.Start)
	}
	if err := fleet.Params.Validate(); err != nil {
		add(ErrCodeModel, "model", "%v", err)
	}
	if err := fleet.Negotiation.Validate(); err != nil {
		add(ErrCodeModel, "negotiation", "%v", err)
	}

	products := map[string]bool{}
	for i, p := range f.Products {
		field := fmt.Sprintf("products[%d]", i)
		if products[p.ID] {
			add(ErrCodeDuplicate, field, "duplicate product id %q", p.ID)
			continue
		}
		products[p.ID] = true
		fleet.Products = append(fleet.Products, model.Product{ID: p.ID, Name: p.Name, UnitWeight: p.UnitWeight})
	}

	stores := map[string]bool{}
	for i, s := range f.Stores {
		field := fmt.Sprintf("stores[%d]", i)
		if stores[s.ID] {
			add(ErrCodeDuplicate, field, "duplicate store id %q", s.ID)
			continue
		}
		stores[s.ID] = true
		fleet.Stores = append(fleet.Stores, model.Store{
			ID:       s.ID,
			Name:     s.Name,
			Position: model.Position{X: s.X, Y: s.Y},
			Window:   parseWindow(field+".window", s.Window),
		})

		seen := map[string]bool{}
		for j, l := range s.Demand {
			lf := fmt.Sprintf("%s.demand[%d]", field, j)
			if seen[l.ProductID] {
				add(ErrCodeDuplicate, lf, "product %q listed twice", l.ProductID)
				continue
			}
			seen[l.ProductID] = true
			if !products[l.ProductID] {
				// Unknown products are carried with zero weight.
				slog.Warn("demand for unknown product", "store", s.ID, "product", l.ProductID)
			}
			fleet.Demand[s.ID] = append(fleet.Demand[s.ID], l)
		}
	}

	carriers := map[string]bool{}
	for i, c := range f.Carriers {
		field := fmt.Sprintf("carriers[%d]", i)
		if carriers[c.ID] {
			add(ErrCodeDuplicate, field, "duplicate carrier id %q", c.ID)
			continue
		}
		if stores[c.ID] {
			add(ErrCodeDuplicate, field, "carrier id %q collides with a store id", c.ID)
			continue
		}
		carriers[c.ID] = true

		spec := model.Carrier{
			ID:           c.ID,
			Capacity:     c.Capacity,
			CostPerKm:    c.CostPerKm,
			Availability: model.Window{Start: model.At(8, 0, 0), End: model.At(18, 0, 0)},
		}
		if c.Depot != nil {
			spec.Depot = model.Position{X: c.Depot.X, Y: c.Depot.Y}
		}
		if c.Availability != nil {
			spec.Availability = parseWindow(field+".availability", c.Availability)
		}
		fleet.Carriers = append(fleet.Carriers, spec)
	}

	if len(errs) > 0 {
		return nil, errs
	}

	fleet.Catalog = model.NewCatalog(fleet.Products, fleet.Stores, fleet.Carriers)
	hash, err := canon.Key(canon.DomainConfig, fleet.canonical())
	if err != nil {
		return nil, fmt.Errorf("config hash: %w", err)
	}
	fleet.Hash = hash
	return fleet, nil
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// canonical renders the fleet for hashing. Floats become decimal strings
// since canonical JSON forbids them.
func (f *Fleet) canonical() map[string]any {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	window := func(w model.Window) map[string]any {
		return map[string]any{"start": w.Start.String(), "end": w.End.String()}
	}

	products := make([]any, 0, len(f.Products))
	for _, p := range f.Products {
		products = append(products, map[string]any{"id": p.ID, "name": p.Name, "unit_weight": num(p.UnitWeight)})
	}
	stores := make([]any, 0, len(f.Stores))
	for _, s := range f.Stores {
		demand := make([]any, 0, len(f.Demand[s.ID]))
		for _, l := range f.Demand[s.ID] {
			demand = append(demand, map[string]any{"product_id": l.ProductID, "qty": l.Qty})
		}
		stores = append(stores, map[string]any{
			"id": s.ID, "name": s.Name, "x": num(s.Position.X), "y": num(s.Position.Y),
			"window": window(s.Window), "demand": demand,
		})
	}
	carriers := make([]any, 0, len(f.Carriers))
	for _, c := range f.Carriers {
		carriers = append(carriers, map[string]any{
			"id": c.ID, "capacity": num(c.Capacity), "cost_per_km": num(c.CostPerKm),
			"depot":        map[string]any{"x": num(c.Depot.X), "y": num(c.Depot.Y)},
			"availability": window(c.Availability),
		})
	}

	return map[string]any{
		"name":    f.Name,
		"start":   f.Start.String(),
		"horizon": f.Horizon.String(),
		"model": map[string]any{
			"speed_kmh":                num(f.Params.SpeedKmH),
			"service_base_seconds":     f.Params.ServiceBaseSeconds,
			"service_per_item_seconds": f.Params.ServicePerItemSeconds,
			"loading_seconds":          f.Params.LoadingSeconds,
			"cost_weight":              num(f.Params.Weights.Cost),
			"time_weight":              num(f.Params.Weights.Time),
		},
		"negotiation": map[string]any{
			"collection_window": f.Negotiation.CollectionWindow,
			"retry_interval":    f.Negotiation.RetryInterval,
		},
		"runtime":  map[string]any{"max_cycles_per_instant": f.MaxCyclesPerInstant},
		"products": products,
		"stores":   stores,
		"carriers": carriers,
	}
}

// StoreIDs returns store ids in file order.
func (f *Fleet) StoreIDs() []string {
	ids := make([]string, len(f.Stores))
	for i, s := range f.Stores {
		ids[i] = s.ID
	}
	return ids
}

// HasDemand reports whether any store requests anything.
func (f *Fleet) HasDemand() bool {
	return slices.ContainsFunc(f.Stores, func(s model.Store) bool { return len(f.Demand[s.ID]) > 0 })
}
