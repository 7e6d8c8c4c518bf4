package sim

import (
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// Actor is one single-threaded participant. A scheduler calls its methods
// from exactly one goroutine.
type Actor interface {
	ID() string
	Role() message.Role

	// Start runs once before any message is delivered.
	Start(now model.TimeOfDay) []message.Outgoing

	// Handle processes one delivered message.
	Handle(now model.TimeOfDay, env message.Envelope) []message.Outgoing

	// Tick fires due timers. It runs after the mailbox is drained and
	// whenever the clock reaches NextWake.
	Tick(now model.TimeOfDay) []message.Outgoing

	// NextWake is the next instant the actor needs a Tick without any new
	// message. ok=false means it only reacts to messages.
	NextWake() (at model.TimeOfDay, ok bool)
}
