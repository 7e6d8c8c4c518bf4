package feasibility

import (
	"fmt"
	"math"

	"github.com/roach88/convoy/internal/model"
)

// ReturnLegFactor discounts the return (or next) leg in cost estimates.
const ReturnLegFactor = 0.7

// Defaults for Params.
const (
	DefaultSpeedKmH              = 50.0
	DefaultServiceBaseSeconds    = 300 // 5 minutes
	DefaultServicePerItemSeconds = 10
	DefaultLoadingSeconds        = 600 // 10 minutes
	DefaultCostWeight            = 0.3
	DefaultTimeWeight            = 0.7
)

// Params are the tunables of the model. The formulas are fixed.
type Params struct {
	SpeedKmH              float64
	ServiceBaseSeconds    int64
	ServicePerItemSeconds int64
	LoadingSeconds        int64
	Weights               Weights
}

// DefaultParams returns the reference parameterization.
func DefaultParams() Params {
	return Params{
		SpeedKmH:              DefaultSpeedKmH,
		ServiceBaseSeconds:    DefaultServiceBaseSeconds,
		ServicePerItemSeconds: DefaultServicePerItemSeconds,
		LoadingSeconds:        DefaultLoadingSeconds,
		Weights:               Weights{Cost: DefaultCostWeight, Time: DefaultTimeWeight},
	}
}

// Validate rejects parameterizations that would make the model meaningless.
func (p Params) Validate() error {
	if p.SpeedKmH <= 0 {
		return fmt.Errorf("feasibility: speed must be positive, got %v", p.SpeedKmH)
	}
	if p.ServiceBaseSeconds < 0 || p.ServicePerItemSeconds < 0 || p.LoadingSeconds < 0 {
		return fmt.Errorf("feasibility: durations must be non-negative")
	}
	if p.Weights.Cost < 0 || p.Weights.Time < 0 {
		return fmt.Errorf("feasibility: score weights must be non-negative")
	}
	return nil
}

// Distance is the Euclidean distance between two points.
func Distance(a, b model.Position) float64 {
	return model.Distance(a, b)
}

// TravelTime returns the seconds needed to drive d kilometres.
func (p Params) TravelTime(d float64) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d / p.SpeedKmH * 3600))
}

// ServiceTime grows linearly with the number of items unloaded.
func (p Params) ServiceTime(itemCount int) int64 {
	if itemCount < 0 {
		itemCount = 0
	}
	return p.ServiceBaseSeconds + p.ServicePerItemSeconds*int64(itemCount)
}

// LoadingTime is the fixed reload time at the depot.
func (p Params) LoadingTime() int64 {
	return p.LoadingSeconds
}

// LegCost estimates the cost of an outbound leg plus the discounted return leg.
func LegCost(dOut, dReturn, costPerKm float64) float64 {
	return dOut*costPerKm + dReturn*costPerKm*ReturnLegFactor
}
