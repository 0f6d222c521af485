package ledger_test

import (
	"testing"
	"time"

	"tonight/internal/ledger"
)

func TestCurrentStatusFoldsCopies(t *testing.T) {
	decision := ledger.DecisionEvent{ID: "d1", UserAction: ledger.ActionPending, DecidedAt: base}
	if got := ledger.CurrentStatus(decision, nil); got.Action != ledger.ActionPending || got.Copy != nil {
		t.Fatalf("expected pending root, got %+v", got)
	}

	events := []ledger.DecisionEvent{
		{ID: "c2", ParentID: "d1", UserAction: ledger.ActionRejected, Undo: true, DecidedAt: base.Add(2 * time.Hour)},
		{ID: "c1", ParentID: "d1", UserAction: ledger.ActionApproved, DecidedAt: base.Add(time.Hour)},
		{ID: "x", ParentID: "other", UserAction: ledger.ActionExpired, DecidedAt: base.Add(3 * time.Hour)},
	}
	got := ledger.CurrentStatus(decision, events)
	if got.Action != ledger.ActionRejected || !got.Undone || got.Copy == nil || got.Copy.ID != "c2" {
		t.Fatalf("expected undo to win, got %+v", got)
	}
	if !ledger.HasCopy(events, "d1", ledger.ActionApproved, false) {
		t.Fatal("expected approval copy to be found")
	}
	if ledger.HasCopy(events, "d1", ledger.ActionExpired, false) {
		t.Fatal("expected no expired copy for d1")
	}
}

func TestRecentMealIDsUsesRootCookDecisions(t *testing.T) {
	events := []ledger.DecisionEvent{
		{ID: "a", Type: ledger.TypeCook, MealID: "m1", DecidedAt: base},
		{ID: "b", Type: ledger.TypeCook, MealID: "m2", DecidedAt: base.Add(time.Hour)},
		{ID: "c", Type: ledger.TypeCook, MealID: "m2", ParentID: "b", DecidedAt: base.Add(2 * time.Hour)},
		{ID: "d", Type: ledger.TypeOrder, VendorKey: "v", DecidedAt: base.Add(3 * time.Hour)},
	}
	ids := ledger.RecentMealIDs(events)
	if len(ids) != 2 || ids[0] != "m2" || ids[1] != "m1" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestKindClassifiesMarkers(t *testing.T) {
	cases := map[error]string{
		ledger.Wrap(ledger.ErrValidation, "ledger", "persist", "bad", nil): "validation",
		ledger.Wrap(ledger.ErrConflict, "ledger", "persist", "dup", nil):   "conflict",
		ledger.Wrap(nil, "ledger", "persist", "", nil):                     "collaborator",
	}
	for err, want := range cases {
		if got := ledger.Kind(err); got != want {
			t.Fatalf("Kind(%v) = %q, want %q", err, got, want)
		}
	}
	if ledger.Kind(nil) != "" {
		t.Fatal("expected empty kind for nil")
	}
}
