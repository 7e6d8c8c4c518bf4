package negotiation

import (
	"errors"
	"fmt"

	"github.com/roach88/convoy/internal/model"
)

// Ledger is the demand ledger of one store.
type Ledger struct {
	storeID string
	lines   []model.DemandLine
	index   map[string]int
}

// NewLedger creates a ledger with one line per product. Duplicate products
// and non-positive quantities are configuration errors.
func NewLedger(storeID string, demand []model.Line) (*Ledger, error) {
	l := &Ledger{
		storeID: storeID,
		lines:   make([]model.DemandLine, 0, len(demand)),
		index:   make(map[string]int, len(demand)),
	}
	for _, d := range demand {
		if d.Qty <= 0 {
			return nil, fmt.Errorf("store %s: demand for %s must be positive, got %d", storeID, d.ProductID, d.Qty)
		}
		if _, dup := l.index[d.ProductID]; dup {
			return nil, fmt.Errorf("store %s: duplicate demand for %s", storeID, d.ProductID)
		}
		l.index[d.ProductID] = len(l.lines)
		l.lines = append(l.lines, model.DemandLine{
			ID:        storeID + "/" + d.ProductID,
			StoreID:   storeID,
			ProductID: d.ProductID,
			Requested: d.Qty,
		})
	}
	return l, nil
}

// Lines returns a copy of the demand lines in creation order.
func (l *Ledger) Lines() []model.DemandLine {
	out := make([]model.DemandLine, len(l.lines))
	copy(out, l.lines)
	return out
}

// Line returns the line for productID.
func (l *Ledger) Line(productID string) (model.DemandLine, bool) {
	i, ok := l.index[productID]
	if !ok {
		return model.DemandLine{}, false
	}
	return l.lines[i], true
}

// Remaining lists the unsettled, unpromised quantity per product, skipping
// zeros. This is exactly what a CFP asks for.
func (l *Ledger) Remaining() []model.Line {
	var out []model.Line
	for _, d := range l.lines {
		if r := d.Remaining(); r > 0 {
			out = append(out, model.Line{ProductID: d.ProductID, Qty: r})
		}
	}
	return out
}

// RemainingQty is the sum of Remaining.
func (l *Ledger) RemainingQty() int {
	return model.TotalQty(l.Remaining())
}

// AllDelivered reports whether every line is settled.
func (l *Ledger) AllDelivered() bool {
	for _, d := range l.lines {
		if !d.Settled() {
			return false
		}
	}
	return true
}

// Order promises qty units of productID to a carrier.
func (l *Ledger) Order(productID string, qty int) error {
	i, ok := l.index[productID]
	if !ok {
		return fmt.Errorf("store %s: no demand for %s", l.storeID, productID)
	}
	if qty <= 0 || qty > l.lines[i].Remaining() {
		return fmt.Errorf("store %s: cannot order %d of %s, remaining %d",
			l.storeID, qty, productID, l.lines[i].Remaining())
	}
	l.lines[i].Ordered += qty
	return nil
}

// Release returns up to qty promised units of productID to the remaining
// pool and reports how many were released.
func (l *Ledger) Release(productID string, qty int) int {
	i, ok := l.index[productID]
	if !ok || qty <= 0 {
		return 0
	}
	n := min(qty, l.lines[i].Ordered)
	l.lines[i].Ordered -= n
	return n
}

// Deliver records qty delivered units of productID. Up to promised units
// are converted from Ordered; anything beyond that is credited only while
// there is remaining demand. It returns the units credited in total; the
// caller logs the difference as an over-delivery.
func (l *Ledger) Deliver(productID string, qty, promised int) int {
	i, ok := l.index[productID]
	if !ok || qty <= 0 {
		return 0
	}
	d := &l.lines[i]

	fromOrder := min(qty, promised, d.Ordered)
	d.Ordered -= fromOrder
	d.Delivered += fromOrder

	extra := min(qty-fromOrder, d.Remaining())
	d.Delivered += extra
	return fromOrder + extra
}

// Check validates every line invariant.
func (l *Ledger) Check() error {
	var errs []error
	for _, d := range l.lines {
		if err := d.Check(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
