package testutil

// DefaultRunID is what FixedGenerator returns for an empty id.
const DefaultRunID = "test-run-default"

// FixedGenerator generates the same run id every time.
//
// Stored traces are keyed by run id, so a fixed id makes the same scenario
// produce byte-identical databases.
//
// Thread-safety: FixedGenerator is stateless and safe for concurrent use.
type FixedGenerator struct {
	id string
}

// NewFixedGenerator creates a new fixed run id generator.
// If id is empty, Generate() returns DefaultRunID.
func NewFixedGenerator(id string) *FixedGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedGenerator) Generate() string {
	return g.id
}
