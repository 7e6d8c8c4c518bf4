package reporting

import (
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// DefaultID is the actor id the reporter registers under.
const DefaultID = "reporter"

// Sink receives every recorded delivery. The SQLite store implements it.
type Sink interface {
	RecordDelivery(dc message.DeliveryComplete) error
}

// Reporter is the passive reporting actor.
type Reporter struct {
	id     string
	ledger *Ledger
	sink   Sink
}

// NewReporter wraps a ledger as an actor. sink may be nil.
func NewReporter(id string, ledger *Ledger, sink Sink) *Reporter {
	if id == "" {
		id = DefaultID
	}
	return &Reporter{id: id, ledger: ledger, sink: sink}
}

func (r *Reporter) ID() string         { return r.id }
func (r *Reporter) Role() message.Role { return message.RoleReporter }

func (r *Reporter) Start(model.TimeOfDay) []message.Outgoing { return nil }
func (r *Reporter) Tick(model.TimeOfDay) []message.Outgoing  { return nil }
func (r *Reporter) NextWake() (model.TimeOfDay, bool)         { return 0, false }

// Handle records deliveries and ignores everything else.
func (r *Reporter) Handle(_ model.TimeOfDay, env message.Envelope) []message.Outgoing {
	dc, ok := env.Body.(message.DeliveryComplete)
	if !ok {
		return nil
	}
	if err := r.ledger.Record(dc); err != nil {
		r.ledger.log.Warn("dropping delivery", "from", env.From, "error", err)
		return nil
	}
	if r.sink != nil {
		if err := r.sink.RecordDelivery(dc); err != nil {
			r.ledger.log.Error("persist delivery", "from", env.From, "error", err)
		}
	}
	return nil
}

// Ledger returns the underlying ledger.
func (r *Reporter) Ledger() *Ledger { return r.ledger }
