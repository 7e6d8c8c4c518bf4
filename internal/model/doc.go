// Package model defines the reference data and derived records of the delivery
// network: products, stores (demand points), carriers (trucks), demand lines,
// queued orders and the append-only route records produced by execution.
//
// Reference data (Product, Store, Carrier) is immutable once loaded. Mutable
// state lives elsewhere and is owned by exactly one actor:
//   - DemandLine quantities: the owning store's negotiation coordinator
//   - carrier load, position and next-free time: the carrier's own loop
//
// Time is simulated time of day, measured in whole seconds since midnight
// (TimeOfDay). It never reads the wall clock.
package model
