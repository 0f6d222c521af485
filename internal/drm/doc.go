// Package drm implements Dinner Rescue Mode: the trigger evaluator that
// decides whether normal meal selection must be bypassed, and the rescue
// selector that deterministically picks one override action.
//
// All hour and date arithmetic uses the location of the "now" value the
// caller passes in, which the arbiter parses from the household's
// offset-qualified request timestamp. The server's zone is never consulted.
package drm
