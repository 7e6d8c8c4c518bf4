package sim

import (
	"sync"

	"github.com/roach88/convoy/internal/message"
)

// Mailbox is an unbounded FIFO of envelopes for one actor.
//
// The bus enqueues from any goroutine; only the owning actor's loop
// dequeues. A buffered signal channel lets the realtime loop select on
// "message ready" alongside its ticker and context.
type Mailbox struct {
	mu     sync.Mutex
	items  []message.Envelope
	closed bool
	signal chan struct{} // buffered, size 1
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		items:  make([]message.Envelope, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends env. Returns false once the mailbox is closed.
func (m *Mailbox) Enqueue(env message.Envelope) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.items = append(m.items, env)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the oldest envelope without blocking.
func (m *Mailbox) TryDequeue() (message.Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return message.Envelope{}, false
	}
	env := m.items[0]
	m.items[0] = message.Envelope{} // drop the Body reference for GC
	if len(m.items) == 1 {
		m.items = m.items[:0]
	} else {
		m.items = m.items[1:]
	}
	return env, true
}

// Wait returns a channel that fires when envelopes may be available. It is
// closed when the mailbox closes.
func (m *Mailbox) Wait() <-chan struct{} {
	return m.signal
}

// Len returns the number of queued envelopes.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close rejects further envelopes and wakes any waiter.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	close(m.signal)
}
