// Package harness runs fleet scenarios and checks what happened.
//
// A scenario is a YAML file holding a fleet (inline or by path) and a list
// of assertions. The harness simulates the fleet with the deterministic
// scheduler, persists the trace into a fresh in-memory SQLite store,
// verifies the stored hashes and then evaluates:
//
//   - trace assertions over the routed messages (trace_contains,
//     trace_count, trace_order), filtered by kind, sender and recipient
//   - final_state assertions over the stores, carriers, routes and
//     deliveries tables
//   - the properties every run must keep, whatever the assertions say
//     (see CheckProperties)
//
// Traces are rendered as canonical JSON lines so they can be compared
// against golden files with goldie.
package harness
