package sim

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// Recorder receives every routed envelope, in seq order. The SQLite store
// implements it to persist the message trace.
type Recorder interface {
	Record(env message.Envelope) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(env message.Envelope) error

func (f RecorderFunc) Record(env message.Envelope) error { return f(env) }

// Bus is the in-process transport plus role directory.
//
// Broadcasts fan out to recipients in registration order. Stamping and
// enqueueing happen under one lock, so per-mailbox order equals seq order.
type Bus struct {
	mu       sync.Mutex
	clock    *Clock
	order    []string
	roles    map[message.Role][]string
	boxes    map[string]*Mailbox
	recorder Recorder

	delivered atomic.Int64
	dropped   atomic.Int64
}

// NewBus creates a bus stamping with clock. rec may be nil.
func NewBus(clock *Clock, rec Recorder) *Bus {
	if clock == nil {
		clock = NewClock()
	}
	return &Bus{
		clock:    clock,
		roles:    make(map[message.Role][]string),
		boxes:    make(map[string]*Mailbox),
		recorder: rec,
	}
}

// Register adds an actor id under role and returns its mailbox.
func (b *Bus) Register(id string, role message.Role) (*Mailbox, error) {
	if id == "" || role == "" {
		return nil, &RuntimeError{Code: ErrCodeInvalidActor, Message: "actor id and role are required", ActorID: id}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.boxes[id]; dup {
		return nil, &RuntimeError{Code: ErrCodeDuplicateActor, Message: "actor already registered", ActorID: id}
	}
	box := NewMailbox()
	b.boxes[id] = box
	b.order = append(b.order, id)
	b.roles[role] = append(b.roles[role], id)
	return box, nil
}

// Lookup returns the ids registered under role, in registration order.
func (b *Bus) Lookup(role message.Role) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.roles[role])
}

// Mailbox returns the mailbox of id.
func (b *Bus) Mailbox(id string) (*Mailbox, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	box, ok := b.boxes[id]
	return box, ok
}

// Pending is the number of envelopes waiting in all mailboxes.
func (b *Bus) Pending() int {
	b.mu.Lock()
	boxes := make([]*Mailbox, 0, len(b.order))
	for _, id := range b.order {
		boxes = append(boxes, b.boxes[id])
	}
	b.mu.Unlock()

	n := 0
	for _, box := range boxes {
		n += box.Len()
	}
	return n
}

// Delivered is the number of envelopes routed so far.
func (b *Bus) Delivered() int64 { return b.delivered.Load() }

// Dropped is the number of envelopes that had no live recipient.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// Send routes the outgoing messages of one actor at simulated time now.
// Invalid bodies never leave the sender. Unknown recipients are logged and
// dropped. A recorder failure is returned after routing finishes.
func (b *Bus) Send(from string, now model.TimeOfDay, out []message.Outgoing) error {
	if len(out) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var recErr error
	for _, o := range out {
		if o.Body == nil {
			slog.Warn("dropping outgoing message without body", "from", from)
			b.dropped.Add(1)
			continue
		}
		if err := o.Body.Validate(); err != nil {
			slog.Error("dropping invalid outgoing message", "from", from, "kind", o.Body.Kind(), "error", err)
			b.dropped.Add(1)
			continue
		}

		for _, to := range b.recipients(from, o) {
			box, ok := b.boxes[to]
			if !ok {
				slog.Warn("no such recipient", "from", from, "to", to, "kind", o.Body.Kind())
				b.dropped.Add(1)
				continue
			}
			env := message.Envelope{
				Seq:    b.clock.Next(),
				From:   from,
				To:     to,
				SentAt: now,
				Body:   o.Body,
			}
			if !box.Enqueue(env) {
				b.dropped.Add(1)
				continue
			}
			b.delivered.Add(1)
			slog.Debug("routed", "seq", env.Seq, "from", from, "to", to, "kind", env.Kind(), "at", now)

			if b.recorder != nil && recErr == nil {
				if err := b.recorder.Record(env); err != nil {
					recErr = fmt.Errorf("record seq %d: %w", env.Seq, err)
				}
			}
		}
	}
	return recErr
}

// recipients resolves an Outgoing to actor ids. Must hold b.mu.
func (b *Bus) recipients(from string, o message.Outgoing) []string {
	if o.To != "" {
		return []string{o.To}
	}
	ids := b.roles[o.Role]
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == from || slices.Contains(o.Exclude, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Close closes every mailbox.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range b.order {
		b.boxes[id].Close()
	}
}
