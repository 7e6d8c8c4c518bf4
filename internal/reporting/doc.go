// Package reporting turns DELIVERY_COMPLETE messages into a route ledger.
//
// The reporter is a passive actor: it never sends messages and never
// influences negotiation. Deliveries are grouped into routes keyed by
// carrier and route departure. Lines for the same store on one route are
// merged into a single stop. Route distance includes the return to depot
// and route cost discounts the return leg.
//
// Missing reference data never stops the ledger. Unknown stores, products
// and carriers fall back to neutral defaults and a warning is logged.
package reporting
