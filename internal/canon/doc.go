// Package canon produces RFC 8785 canonical JSON and content keys derived
// from it.
//
// Canonical bytes are used wherever two actors, or two runs, must agree that
// two values are the same: duplicate ACCEPT detection in carriers and
// byte-stable trace snapshots for golden tests.
//
// Supported values are strings, integers, booleans, []any, []string and
// map[string]any. Floats and null are rejected; callers that need to carry a
// measurement encode it as a fixed-precision string first.
package canon
