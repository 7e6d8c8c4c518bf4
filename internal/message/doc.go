// Package message defines the negotiation protocol as a tagged union.
//
// Every message body is a concrete Payload type; there is no free-form
// content. Receivers call Validate before acting and drop (and log) bodies
// that fail it. Envelopes are stamped and routed by the runtime in package
// sim; actors only produce Outgoing values.
package message
