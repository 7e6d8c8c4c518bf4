package message

import "github.com/roach88/convoy/internal/model"

// Role is the directory capability an actor registers under.
type Role string

const (
	RoleStore    Role = "store"
	RoleCarrier  Role = "carrier"
	RoleReporter Role = "reporter"
)

// Envelope is a routed message. Seq is assigned by the runtime and is
// strictly increasing across the whole run.
type Envelope struct {
	Seq    int64
	From   string
	To     string
	SentAt model.TimeOfDay
	Body   Payload
}

// Kind is shorthand for e.Body.Kind().
func (e Envelope) Kind() Kind {
	if e.Body == nil {
		return ""
	}
	return e.Body.Kind()
}

// Outgoing is a message an actor wants sent. Exactly one of To and Role is
// set. A role broadcast reaches every actor of that role except the sender
// and the ids in Exclude.
type Outgoing struct {
	To      string
	Role    Role
	Exclude []string
	Body    Payload
}

// To addresses body to a single actor.
func To(id string, body Payload) Outgoing {
	return Outgoing{To: id, Body: body}
}

// Broadcast addresses body to every actor of role.
func Broadcast(role Role, body Payload, exclude ...string) Outgoing {
	return Outgoing{Role: role, Exclude: exclude, Body: body}
}
