package feasibility

// Weights combine normalized cost and normalized time into one score.
type Weights struct {
	Cost float64
	Time float64
}

// Candidate is one option being compared: a bid, or a next stop.
type Candidate struct {
	Cost float64
	Time float64 // seconds of latency
}

// Scores normalizes cost and time independently against the largest value in
// the set (0 when that maximum is 0) and combines them. Lower is better.
func (w Weights) Scores(cands []Candidate) []float64 {
	var maxCost, maxTime float64
	for _, c := range cands {
		if c.Cost > maxCost {
			maxCost = c.Cost
		}
		if c.Time > maxTime {
			maxTime = c.Time
		}
	}

	scores := make([]float64, len(cands))
	for i, c := range cands {
		var nc, nt float64
		if maxCost > 0 {
			nc = c.Cost / maxCost
		}
		if maxTime > 0 {
			nt = c.Time / maxTime
		}
		scores[i] = w.Cost*nc + w.Time*nt
	}
	return scores
}

// Best returns the index of the lowest score, or -1 for an empty set.
// Ties go to the earliest candidate, so callers control tie-breaking through
// the order they pass candidates in.
func (w Weights) Best(cands []Candidate) int {
	best := -1
	var bestScore float64
	for i, s := range w.Scores(cands) {
		if best == -1 || s < bestScore {
			best = i
			bestScore = s
		}
	}
	return best
}
