package harness

import (
	"fmt"

	"github.com/roach88/convoy/internal/carrier"
	"github.com/roach88/convoy/internal/config"
	"github.com/roach88/convoy/internal/dispatch"
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
	"github.com/roach88/convoy/internal/negotiation"
)

const loadEpsilon = 1e-9

// PropertyViolation is a system-wide property that failed after a run.
type PropertyViolation struct {
	Property string
	Subject  string
	Detail   string
}

func (v PropertyViolation) Error() string {
	return fmt.Sprintf("property %s violated by %s: %s", v.Property, v.Subject, v.Detail)
}

// Property names.
const (
	PropDemandBound  = "demand_bound"
	PropLoadBound    = "load_bound"
	PropLoadDrained  = "load_drained"
	PropStopWindow   = "stop_window"
	PropDeliveredSum = "delivered_sum"
)

// CheckProperties verifies the properties every run must keep, whatever its
// assertions say:
//   - delivered + ordered never exceeds requested for a demand line
//   - a carrier's load stays within capacity and is zero once it is idle
//   - every delivered stop lies inside the store and carrier windows
//   - a fulfilled store received exactly its requested quantities
func CheckProperties(fleet *config.Fleet, stores []negotiation.Snapshot, carriers []carrier.Snapshot, trace []TraceEvent) []PropertyViolation {
	var out []PropertyViolation
	add := func(prop, subject, format string, args ...any) {
		out = append(out, PropertyViolation{Property: prop, Subject: subject, Detail: fmt.Sprintf(format, args...)})
	}

	delivered := make(map[string]map[string]int)
	for _, ev := range trace {
		if ev.Kind != string(message.KindDeliveryComplete) || ev.To != storeOf(ev) {
			continue
		}
		dc, err := deliveryFrom(ev)
		if err != nil {
			add(PropStopWindow, ev.From, "seq %d: %v", ev.Seq, err)
			continue
		}
		if delivered[dc.StoreID] == nil {
			delivered[dc.StoreID] = make(map[string]int)
		}
		delivered[dc.StoreID][dc.ProductID] += dc.Qty

		st, ok := fleet.Catalog.Store(dc.StoreID)
		if !ok {
			continue
		}
		end := st.Window.End
		if c, ok := fleet.Catalog.Carrier(dc.CarrierID); ok {
			end = model.MinTime(end, c.Availability.End)
		}
		if dc.Arrival.Before(st.Window.Start) || dc.DepartureFromStore.After(end) {
			add(PropStopWindow, dc.CarrierID, "stop at %s arrives %s leaves %s outside %s-%s",
				dc.StoreID, dc.Arrival, dc.DepartureFromStore, st.Window.Start, end)
		}
	}

	for _, s := range stores {
		for _, l := range s.Lines {
			if l.Delivered+l.Ordered > l.Requested {
				add(PropDemandBound, s.StoreID, "%s delivered %d + ordered %d > requested %d",
					l.ProductID, l.Delivered, l.Ordered, l.Requested)
			}
			if s.Phase == negotiation.PhaseFulfilled && delivered[s.StoreID][l.ProductID] != l.Requested {
				add(PropDeliveredSum, s.StoreID, "%s received %d of %d",
					l.ProductID, delivered[s.StoreID][l.ProductID], l.Requested)
			}
		}
	}

	for _, c := range carriers {
		if c.Load > c.Capacity+loadEpsilon {
			add(PropLoadBound, c.CarrierID, "load %.3f > capacity %.3f", c.Load, c.Capacity)
		}
		if !c.Busy && len(c.Queue) == 0 && c.Load > loadEpsilon {
			add(PropLoadDrained, c.CarrierID, "idle with load %.3f", c.Load)
		}
	}

	return out
}

func checkProperties(fleet *config.Fleet, s *dispatch.Simulation, trace []TraceEvent) []string {
	var msgs []string
	for _, v := range CheckProperties(fleet, s.Stores(), s.Carriers(), trace) {
		msgs = append(msgs, v.Error())
	}
	return msgs
}

// storeOf returns the store a delivery event is addressed to. Copies sent
// to the reporter are skipped so each delivered line counts once.
func storeOf(ev TraceEvent) string {
	id, _ := ev.Body["store_id"].(string)
	return id
}

// deliveryFrom reads back the fields of a DELIVERY_COMPLETE snapshot.
func deliveryFrom(ev TraceEvent) (message.DeliveryComplete, error) {
	var dc message.DeliveryComplete
	var err error
	str := func(k string) string {
		s, _ := ev.Body[k].(string)
		return s
	}
	at := func(k string) model.TimeOfDay {
		t, perr := model.ParseClock(str(k))
		if perr != nil && err == nil {
			err = fmt.Errorf("%s: %w", k, perr)
		}
		return t
	}
	dc.StoreID = str("store_id")
	dc.ProductID = str("product_id")
	dc.CarrierID = str("carrier_id")
	dc.Arrival = at("arrival")
	dc.DepartureFromStore = at("departure_from_store")
	if qty, ok := ev.Body["qty"].(int64); ok {
		dc.Qty = int(qty)
	}
	return dc, err
}
