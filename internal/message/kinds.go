package message

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/convoy/internal/model"
)

// Kind tags a message body.
type Kind string

const (
	KindCFP              Kind = "CFP"
	KindPropose          Kind = "PROPOSE"
	KindRefuse           Kind = "REFUSE"
	KindAccept           Kind = "ACCEPT"
	KindReject           Kind = "REJECT"
	KindDeliveryComplete Kind = "DELIVERY_COMPLETE"
	KindScheduleChanged  Kind = "SCHEDULE_CHANGED"
	KindScheduleUpdated  Kind = "SCHEDULE_UPDATED"
)

// Kinds lists every message kind in protocol order.
var Kinds = []Kind{
	KindCFP, KindPropose, KindRefuse, KindAccept, KindReject,
	KindDeliveryComplete, KindScheduleChanged, KindScheduleUpdated,
}

// Payload is implemented by every message body.
type Payload interface {
	Kind() Kind
	Validate() error
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid message")

func invalid(k Kind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, k, fmt.Sprintf(format, args...))
}

// CFP is a store's call for proposals. Lines carry only unsettled quantity.
type CFP struct {
	StoreID string       `json:"store_id"`
	Round   int          `json:"round"`
	Lines   []model.Line `json:"lines"`
}

func (CFP) Kind() Kind { return KindCFP }

func (m CFP) Validate() error {
	if m.StoreID == "" {
		return invalid(KindCFP, "missing store id")
	}
	if m.Round < 1 {
		return invalid(KindCFP, "round %d", m.Round)
	}
	return validLines(KindCFP, m.Lines)
}

// Propose is a carrier's bid. Lines may be a subset of the CFP lines when
// the carrier can only take part of the load.
type Propose struct {
	StoreID            string          `json:"store_id"`
	Round              int             `json:"round"`
	Lines              []model.Line    `json:"lines"`
	Cost               float64         `json:"cost"`
	Departure          model.TimeOfDay `json:"departure"`
	Arrival            model.TimeOfDay `json:"arrival"`
	DepartureFromStore model.TimeOfDay `json:"departure_from_store"`
}

func (Propose) Kind() Kind { return KindPropose }

func (m Propose) Validate() error {
	if m.StoreID == "" {
		return invalid(KindPropose, "missing store id")
	}
	if math.IsNaN(m.Cost) || math.IsInf(m.Cost, 0) || m.Cost < 0 {
		return invalid(KindPropose, "cost %v", m.Cost)
	}
	if m.Arrival.Before(m.Departure) || m.DepartureFromStore.Before(m.Arrival) {
		return invalid(KindPropose, "timestamps out of order: %s/%s/%s",
			m.Departure, m.Arrival, m.DepartureFromStore)
	}
	return validLines(KindPropose, m.Lines)
}

// Refuse declines a CFP. With Lines set it hands an accepted order back.
type Refuse struct {
	StoreID string       `json:"store_id"`
	Round   int          `json:"round"`
	Reason  RefuseReason `json:"reason"`
	Lines   []model.Line `json:"lines,omitempty"`
}

func (Refuse) Kind() Kind { return KindRefuse }

func (m Refuse) Validate() error {
	if m.StoreID == "" {
		return invalid(KindRefuse, "missing store id")
	}
	if !m.Reason.Valid() {
		return invalid(KindRefuse, "unknown reason %q", m.Reason)
	}
	if len(m.Lines) > 0 {
		return validLines(KindRefuse, m.Lines)
	}
	return nil
}

// Handback reports whether the refusal returns previously accepted work.
func (m Refuse) Handback() bool {
	return len(m.Lines) > 0
}

// Accept commits a carrier to the listed lines.
type Accept struct {
	StoreID string       `json:"store_id"`
	Round   int          `json:"round"`
	Lines   []model.Line `json:"lines"`
}

func (Accept) Kind() Kind { return KindAccept }

func (m Accept) Validate() error {
	if m.StoreID == "" {
		return invalid(KindAccept, "missing store id")
	}
	return validLines(KindAccept, m.Lines)
}

// Reject tells a bidder it lost or that its offer was stale or bad.
type Reject struct {
	StoreID string       `json:"store_id"`
	Round   int          `json:"round"`
	Reason  RejectReason `json:"reason"`
}

func (Reject) Kind() Kind { return KindReject }

func (m Reject) Validate() error {
	if m.StoreID == "" {
		return invalid(KindReject, "missing store id")
	}
	if !m.Reason.Valid() {
		return invalid(KindReject, "unknown reason %q", m.Reason)
	}
	return nil
}

// DeliveryComplete reports one delivered product line. Departure is when
// the route left the depot; the reporting ledger groups stops by it.
type DeliveryComplete struct {
	StoreID            string          `json:"store_id"`
	ProductID          string          `json:"product_id"`
	Qty                int             `json:"qty"`
	CarrierID          string          `json:"carrier_id"`
	Departure          model.TimeOfDay `json:"departure"`
	Arrival            model.TimeOfDay `json:"arrival"`
	DepartureFromStore model.TimeOfDay `json:"departure_from_store"`
	LegDistance        float64         `json:"leg_distance"`
	StopX              float64         `json:"stop_x"`
	StopY              float64         `json:"stop_y"`
}

func (DeliveryComplete) Kind() Kind { return KindDeliveryComplete }

func (m DeliveryComplete) Validate() error {
	switch {
	case m.StoreID == "":
		return invalid(KindDeliveryComplete, "missing store id")
	case m.ProductID == "":
		return invalid(KindDeliveryComplete, "missing product id")
	case m.CarrierID == "":
		return invalid(KindDeliveryComplete, "missing carrier id")
	case m.Qty <= 0:
		return invalid(KindDeliveryComplete, "qty %d", m.Qty)
	case m.LegDistance < 0 || math.IsNaN(m.LegDistance):
		return invalid(KindDeliveryComplete, "leg distance %v", m.LegDistance)
	case m.DepartureFromStore.Before(m.Arrival):
		return invalid(KindDeliveryComplete, "departs %s before arrival %s", m.DepartureFromStore, m.Arrival)
	}
	return nil
}

// Stop returns the delivery position.
func (m DeliveryComplete) Stop() model.Position {
	return model.Position{X: m.StopX, Y: m.StopY}
}

// ScheduleChanged is the cross-notification sent to stores after an ACCEPT.
type ScheduleChanged struct {
	CarrierID       string          `json:"carrier_id"`
	AcceptedStoreID string          `json:"accepted_store_id"`
	Weight          float64         `json:"weight"`
	Qty             int             `json:"qty"`
	NextFree        model.TimeOfDay `json:"next_free"`
}

func (ScheduleChanged) Kind() Kind { return KindScheduleChanged }

func (m ScheduleChanged) Validate() error {
	return validNotice(KindScheduleChanged, m.CarrierID, m.AcceptedStoreID, m.Weight, m.Qty)
}

// ScheduleUpdated is the cross-notification sent to peer carriers after an ACCEPT.
type ScheduleUpdated struct {
	CarrierID       string  `json:"carrier_id"`
	AcceptedStoreID string  `json:"accepted_store_id"`
	Weight          float64 `json:"weight"`
	Qty             int     `json:"qty"`
}

func (ScheduleUpdated) Kind() Kind { return KindScheduleUpdated }

func (m ScheduleUpdated) Validate() error {
	return validNotice(KindScheduleUpdated, m.CarrierID, m.AcceptedStoreID, m.Weight, m.Qty)
}

func validNotice(k Kind, carrierID, storeID string, weight float64, qty int) error {
	switch {
	case carrierID == "":
		return invalid(k, "missing carrier id")
	case storeID == "":
		return invalid(k, "missing accepted store id")
	case weight < 0 || math.IsNaN(weight):
		return invalid(k, "weight %v", weight)
	case qty < 0:
		return invalid(k, "qty %d", qty)
	}
	return nil
}

func validLines(k Kind, lines []model.Line) error {
	if len(lines) == 0 {
		return invalid(k, "no lines")
	}
	for i, l := range lines {
		if l.ProductID == "" {
			return invalid(k, "line %d: missing product id", i)
		}
		if l.Qty <= 0 {
			return invalid(k, "line %d (%s): qty %d", i, l.ProductID, l.Qty)
		}
	}
	return nil
}
