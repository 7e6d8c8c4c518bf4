package model

import "fmt"

// Product is an item kind with a unit weight. Immutable reference data.
type Product struct {
	ID         string
	Name       string
	UnitWeight float64
}

// Store is a demand point. Immutable reference data.
type Store struct {
	ID       string
	Name     string
	Position Position
	Window   Window
}

// Carrier is the static description of a truck. Runtime state (load, position,
// next-free time) is kept by the carrier actor, never here.
type Carrier struct {
	ID           string
	Capacity     float64
	CostPerKm    float64
	Depot        Position
	Availability Window
}

// Line is a (product, quantity) pair carried in messages and orders.
type Line struct {
	ProductID string `json:"product_id" yaml:"product_id"`
	Qty       int    `json:"qty" yaml:"qty"`
}

// TotalQty sums the quantities of lines.
func TotalQty(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Qty
	}
	return n
}

// CloneLines returns a copy of lines safe to retain.
func CloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

// DemandLine tracks one (store, product) pair.
//
// INVARIANT: Delivered + Ordered <= Requested. Requested never changes after
// creation. Only the owning store's coordinator mutates it.
type DemandLine struct {
	ID        string
	StoreID   string
	ProductID string
	Requested int
	Delivered int
	Ordered   int
}

// Remaining is the quantity neither delivered nor promised by a carrier.
func (d DemandLine) Remaining() int {
	return d.Requested - d.Delivered - d.Ordered
}

// Settled reports whether every requested unit has been delivered.
func (d DemandLine) Settled() bool {
	return d.Delivered >= d.Requested
}

// Check returns an error when the line invariant is violated.
func (d DemandLine) Check() error {
	if d.Delivered < 0 || d.Ordered < 0 {
		return fmt.Errorf("demand line %s: negative quantity (delivered=%d ordered=%d)", d.ID, d.Delivered, d.Ordered)
	}
	if d.Delivered+d.Ordered > d.Requested {
		return fmt.Errorf("demand line %s: delivered(%d)+ordered(%d) > requested(%d)",
			d.ID, d.Delivered, d.Ordered, d.Requested)
	}
	return nil
}

// QueuedOrder is an accepted order waiting in a carrier's queue.
// Created on ACCEPT; removed once routed and delivered, or handed back.
type QueuedOrder struct {
	Key         string // content key of (store, lines); duplicate ACCEPTs share it
	StoreID     string
	Lines       []Line
	TotalWeight float64
	TotalQty    int
	AcceptedAt  TimeOfDay
}
