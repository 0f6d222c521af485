// Package arbiter answers "what's for dinner" for one household with exactly
// one action.
//
// A request first passes the Dinner Rescue Mode trigger evaluator; when a
// trigger fires the rescue selector produces the answer. Otherwise the meal
// selector picks a single winner, the action is validated and persisted as a
// pending decision, and the autopilot policy may approve it. Both the action
// and the outward response pass the invariant validator before they leave.
package arbiter
