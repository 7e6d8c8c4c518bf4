// Package feasibility is the shared feasibility and cost model.
//
// Stores and carriers compare estimates computed by these functions, so both
// sides MUST use the same formulas:
//
//	travelTime(d)            = ceil(d / speedKmH * 3600)            seconds
//	serviceTime(n)           = base + perItem * n                   seconds
//	loadingTime()            = constant                             seconds
//	legCost(dOut, dRet, c)   = dOut*c + dRet*c*ReturnLegFactor
//
// ReturnLegFactor (0.7) models amortization of the return leg across a
// multi-stop route. Everything here is pure: no clocks, no logging, no state.
package feasibility
