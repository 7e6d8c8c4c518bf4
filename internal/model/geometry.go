package model

import (
	"fmt"
	"math"
)

// Position is a point on the planar service map. Units are kilometres.
type Position struct {
	X float64
	Y float64
}

// samePointEpsilon is the tolerance used to decide that a carrier is at a point.
const samePointEpsilon = 1e-9

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Position) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Equal reports whether p and q denote the same point.
func (p Position) Equal(q Position) bool {
	return math.Abs(p.X-q.X) < samePointEpsilon && math.Abs(p.Y-q.Y) < samePointEpsilon
}

func (p Position) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}
