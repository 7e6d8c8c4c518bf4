// Package sim runs stores, carriers and the reporter as independent actors.
//
// Actors never share state. Each one owns a mailbox and exposes pure-ish
// transition methods (Start, Handle, Tick) that return the messages it wants
// sent; the runtime stamps every message with a logical sequence number from
// Clock and routes it through the Bus.
//
// Two schedulers drive the same actors:
//
// Runtime is a deterministic discrete-event scheduler over a virtual clock.
// Each cycle visits actors in registration order, drains the mailbox, then
// ticks. When a cycle makes no progress the clock jumps to the earliest
// NextWake. Same inputs give the same message sequence, which is what the
// scenario harness and golden traces rely on.
//
// Realtime runs one goroutine per actor and maps wall time onto simulated
// time with a speedup factor. Message order across senders is then up to
// the Go scheduler; only per sender->receiver FIFO is kept.
package sim
