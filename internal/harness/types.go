package harness

import (
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/sim"
)

// TraceEvent is one routed envelope in snapshot form: times are HH:MM:SS
// strings and measurements fixed-precision decimal strings, so a trace
// compares byte-for-byte across platforms.
type TraceEvent struct {
	Seq    int64          `json:"seq"`
	SentAt string         `json:"sent_at"`
	From   string         `json:"from"`
	To     string         `json:"to"`
	Kind   string         `json:"kind"`
	Body   map[string]any `json:"body"`
}

// Row is one record of a state table.
type Row map[string]any

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every assertion and property held.
	Pass bool `json:"pass"`

	// Trace contains every routed envelope in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion and property failures.
	Errors []string `json:"errors,omitempty"`

	// State holds the final state tables: stores, carriers, routes and
	// deliveries.
	State map[string][]Row `json:"state,omitempty"`

	// Run is the scheduler's summary.
	Run sim.Result `json:"run"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string][]Row),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEnvelope appends env to the trace.
func (r *Result) AddEnvelope(env message.Envelope) error {
	snap, err := message.Snapshot(env)
	if err != nil {
		return err
	}
	body, _ := snap["body"].(map[string]any)
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    env.Seq,
		SentAt: env.SentAt.String(),
		From:   env.From,
		To:     env.To,
		Kind:   string(env.Kind()),
		Body:   body,
	})
	return nil
}
