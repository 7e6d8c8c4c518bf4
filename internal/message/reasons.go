package message

import "github.com/roach88/convoy/internal/feasibility"

// RefuseReason explains a carrier's REFUSE.
type RefuseReason string

const (
	RefuseBusy             RefuseReason = "BUSY"
	RefuseNoCapacity       RefuseReason = "NO_CAPACITY"
	RefuseStoreNotFound    RefuseReason = "STORE_NOT_FOUND"
	RefuseTimeWindowPassed RefuseReason = "TIME_WINDOW_PASSED"
	RefuseNoTimeWindow     RefuseReason = "NO_TIME_WINDOW"
)

// Valid reports whether r is a known reason.
func (r RefuseReason) Valid() bool {
	switch r {
	case RefuseBusy, RefuseNoCapacity, RefuseStoreNotFound, RefuseTimeWindowPassed, RefuseNoTimeWindow:
		return true
	}
	return false
}

// RefuseFor maps an infeasibility verdict to its REFUSE reason.
func RefuseFor(r feasibility.Reason) RefuseReason {
	switch r {
	case feasibility.NoTimeWindow:
		return RefuseNoTimeWindow
	default:
		return RefuseTimeWindowPassed
	}
}

// RejectReason explains a store's REJECT.
type RejectReason string

const (
	RejectAllDelivered         RejectReason = "ALL_DELIVERED"
	RejectAlreadyAccepted      RejectReason = "ALREADY_ACCEPTED"
	RejectCheaperOfferSelected RejectReason = "CHEAPER_OFFER_SELECTED"
	RejectInvalidOffer         RejectReason = "INVALID_OFFER"
)

// Valid reports whether r is a known reason.
func (r RejectReason) Valid() bool {
	switch r {
	case RejectAllDelivered, RejectAlreadyAccepted, RejectCheaperOfferSelected, RejectInvalidOffer:
		return true
	}
	return false
}
