// Package negotiation implements the store side of the auction.
//
// A Coordinator owns one store's demand ledger and walks it through
//
//	NO_ORDER -> COLLECTING -> COMMITTED -> FULFILLED
//
// COMMITTED falls back to COLLECTING when a delivery leaves a shortfall or
// the committed carrier hands the order back. Bids live only for one
// collection round; schedule-change notices from carriers prune bids whose
// planned departure is no longer believable.
//
// INVARIANT: for every demand line, Delivered + Ordered <= Requested.
package negotiation
