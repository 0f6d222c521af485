// Package invariant is the structural guard on everything the arbiter
// persists or returns. A payload fails closed when it contains an array at
// any depth, a field whose name suggests a list of alternatives, a decision
// or rescue field that is neither an object nor null, or a missing or
// wrong-typed required scalar.
//
// Violations are programming errors in the decision core. Callers must treat
// them as fatal for the request and never retry.
package invariant
