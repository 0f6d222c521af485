package ledger

import (
	"sort"
	"time"
)

// Status is the folded state of a root decision.
type Status struct {
	Action     UserAction
	Undone     bool
	ResolvedAt time.Time
	// Copy is the feedback copy that set the status, nil for an unresolved root.
	Copy *DecisionEvent
}

// CurrentStatus folds root with the feedback copies found in events. The
// latest copy wins; an undo copy reads as rejected with Undone set.
func CurrentStatus(root DecisionEvent, events []DecisionEvent) Status {
	status := Status{Action: root.UserAction}
	var latest *DecisionEvent
	for i := range events {
		ev := events[i]
		if ev.ParentID != root.ID {
			continue
		}
		if latest == nil || !ev.DecidedAt.Before(latest.DecidedAt) {
			latest = &events[i]
		}
	}
	if latest == nil {
		return status
	}
	copied := *latest
	status.Action = copied.UserAction
	status.Undone = copied.Undo
	status.ResolvedAt = copied.DecidedAt
	status.Copy = &copied
	return status
}

// HasCopy reports whether events contain a copy of rootID with action.
func HasCopy(events []DecisionEvent, rootID string, action UserAction, undo bool) bool {
	for _, ev := range events {
		if ev.ParentID == rootID && ev.UserAction == action && ev.Undo == undo {
			return true
		}
	}
	return false
}

// RecentMealIDs lists the meal ids of root cook decisions, most recent first.
func RecentMealIDs(events []DecisionEvent) []string {
	sorted := SortRecentFirst(events)
	ids := make([]string, 0, len(sorted))
	for _, ev := range sorted {
		if ev.IsRoot() && ev.Type == TypeCook && ev.MealID != "" {
			ids = append(ids, ev.MealID)
		}
	}
	return ids
}

// SortRecentFirst returns a copy of events ordered by decision time, newest
// first. Events sharing a timestamp keep their relative order.
func SortRecentFirst(events []DecisionEvent) []DecisionEvent {
	out := make([]DecisionEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DecidedAt.After(out[j].DecidedAt)
	})
	return out
}
