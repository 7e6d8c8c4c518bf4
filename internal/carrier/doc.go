// Package carrier implements the truck side of the auction: bid evaluation,
// the accepted-order queue, the chained route builder and the executor.
//
// A Carrier is a single-threaded actor. Its load, position, next-free time
// and queue are owned by its own loop and change only in response to its
// own messages and timers.
//
// INVARIANTS:
//   - Load <= Capacity.
//   - Load is the weight of queued orders plus undelivered route stops, so
//     it is exactly 0 iff the queue and the active route are both empty.
//   - Every executed stop satisfies store.windowStart <= arrival and
//     departureFromStore <= min(store.windowEnd, availability.End).
package carrier
