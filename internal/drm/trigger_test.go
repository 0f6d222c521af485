package drm_test

import (
	"testing"
	"time"

	"tonight/internal/config"
	"tonight/internal/drm"
	"tonight/internal/ledger"
)

var zone = time.FixedZone("CDT", -5*3600)

func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 14, hour, minute, 0, 0, zone)
}

func rejection(t time.Time) ledger.DecisionEvent {
	return ledger.DecisionEvent{ID: "r-" + t.Format(time.RFC3339), ParentID: "root", UserAction: ledger.ActionRejected, DecidedAt: t}
}

func evaluator() *drm.Evaluator {
	return drm.NewEvaluator(config.Default().DRM)
}

func TestCalendarConflictWinsOverEverything(t *testing.T) {
	history := []ledger.DecisionEvent{rejection(at(19, 0)), rejection(at(19, 5))}
	sig := drm.Signal{TimeWindow: drm.WindowLate, Energy: drm.EnergyLow, CalendarConflict: true}
	got := evaluator().Evaluate(sig, at(21, 0), history)
	if !got.Triggered || got.Reason != drm.ReasonCalendarConflict {
		t.Fatalf("expected calendar_conflict, got %+v", got)
	}
}

func TestEvaluatePriorityOrder(t *testing.T) {
	quick := []ledger.DecisionEvent{rejection(at(17, 0)), rejection(at(17, 10))}
	cases := []struct {
		name    string
		sig     drm.Signal
		now     time.Time
		history []ledger.DecisionEvent
		want    drm.Reason
	}{
		{"low energy beats rejections", drm.Signal{Energy: drm.EnergyLow}, at(17, 15), quick, drm.ReasonLowEnergy},
		{"rejections beat lateness", drm.Signal{Energy: drm.EnergyOK}, at(20, 30), []ledger.DecisionEvent{rejection(at(20, 0)), rejection(at(20, 10))}, drm.ReasonTwoRejections},
		{"late unconditional", drm.Signal{Energy: drm.EnergyOK}, at(20, 0), nil, drm.ReasonLateNoAction},
		{"nothing", drm.Signal{Energy: drm.EnergyOK}, at(17, 0), nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := evaluator().Evaluate(tc.sig, tc.now, tc.history)
			if got.Reason != tc.want || got.Triggered != (tc.want != "") {
				t.Fatalf("expected %q, got %+v", tc.want, got)
			}
		})
	}
}

func TestHasTwoRejectionsWithinWindow(t *testing.T) {
	now := at(18, 0)
	window := 30 * time.Minute
	near := []ledger.DecisionEvent{rejection(at(17, 0)), rejection(at(17, 10))}
	if !drm.HasTwoRejectionsWithinWindow(near, now, window) {
		t.Fatal("expected rejections 10 minutes apart to trigger")
	}
	far := []ledger.DecisionEvent{rejection(at(17, 0)), rejection(at(17, 40))}
	if drm.HasTwoRejectionsWithinWindow(far, now, window) {
		t.Fatal("expected rejections 40 minutes apart not to trigger")
	}
	if drm.HasTwoRejectionsWithinWindow(near[:1], now, window) {
		t.Fatal("expected a single rejection not to trigger")
	}

	// Only the two most recent rejections count.
	mixed := []ledger.DecisionEvent{rejection(at(16, 0)), rejection(at(16, 5)), rejection(at(17, 0))}
	if drm.HasTwoRejectionsWithinWindow(mixed, now, window) {
		t.Fatal("expected older pair to be ignored")
	}

	undo := rejection(at(17, 5))
	undo.Undo = true
	if drm.HasTwoRejectionsWithinWindow([]ledger.DecisionEvent{rejection(at(17, 0)), undo}, now, window) {
		t.Fatal("expected undo copies to be ignored")
	}

	yesterday := []ledger.DecisionEvent{rejection(at(17, 0).AddDate(0, 0, -1)), rejection(at(17, 10).AddDate(0, 0, -1))}
	if drm.HasTwoRejectionsWithinWindow(yesterday, now, window) {
		t.Fatal("expected rejections from another day to be ignored")
	}
}

func TestLateNoActionDinnerWindow(t *testing.T) {
	sig := drm.Signal{Energy: drm.EnergyOK, TimeWindow: drm.WindowDinner}
	pending := ledger.DecisionEvent{ID: "p", UserAction: ledger.ActionPending, DecidedAt: at(17, 30)}
	approved := ledger.DecisionEvent{ID: "a", ParentID: "p", UserAction: ledger.ActionApproved, DecidedAt: at(17, 45)}
	expiredYesterday := ledger.DecisionEvent{ID: "e", UserAction: ledger.ActionExpired, DecidedAt: at(18, 30).AddDate(0, 0, -1)}

	if got := evaluator().Evaluate(sig, at(18, 30), []ledger.DecisionEvent{pending}); got.Reason != drm.ReasonLateNoAction {
		t.Fatalf("expected late_no_action with a pending decision shown today, got %+v", got)
	}
	if got := evaluator().Evaluate(sig, at(18, 30), []ledger.DecisionEvent{pending, approved}); got.Triggered {
		t.Fatalf("expected approval today to suppress lateness, got %+v", got)
	}
	if got := evaluator().Evaluate(sig, at(18, 30), nil); got.Triggered {
		t.Fatalf("expected no trigger without anything shown today, got %+v", got)
	}
	if got := evaluator().Evaluate(sig, at(18, 30), []ledger.DecisionEvent{expiredYesterday}); got.Triggered {
		t.Fatalf("expected yesterday's activity to be ignored, got %+v", got)
	}
	if got := evaluator().Evaluate(sig, at(17, 59), []ledger.DecisionEvent{pending}); got.Triggered {
		t.Fatalf("expected no trigger before 18:00, got %+v", got)
	}
}

func TestLateNoActionIgnoresUndoneApproval(t *testing.T) {
	sig := drm.Signal{Energy: drm.EnergyOK, TimeWindow: drm.WindowDinner}
	first := ledger.DecisionEvent{ID: "d1", UserAction: ledger.ActionPending, DecidedAt: at(17, 0)}
	history := []ledger.DecisionEvent{
		{ID: "d2", UserAction: ledger.ActionPending, DecidedAt: at(18, 20)},
		{ID: "d1-undo", ParentID: "d1", UserAction: ledger.ActionRejected, Undo: true, DecidedAt: at(18, 10)},
		{ID: "d1-ok", ParentID: "d1", UserAction: ledger.ActionApproved, DecidedAt: at(17, 5)},
		first,
	}
	got := evaluator().Evaluate(sig, at(18, 30), history)
	if !got.Triggered || got.Reason != drm.ReasonLateNoAction {
		t.Fatalf("expected late_no_action after the approval was undone, got %+v", got)
	}

	// The same approval without the undo still counts.
	kept := []ledger.DecisionEvent{history[0], history[2], first}
	if got := evaluator().Evaluate(sig, at(18, 30), kept); got.Triggered {
		t.Fatalf("expected standing approval to suppress lateness, got %+v", got)
	}

	// Copies whose root is outside the loaded history are still folded.
	orphaned := []ledger.DecisionEvent{history[0], history[1], history[2]}
	if got := evaluator().Evaluate(sig, at(18, 30), orphaned); got.Reason != drm.ReasonLateNoAction {
		t.Fatalf("expected late_no_action with only the copies loaded, got %+v", got)
	}
}

func TestLocalHourComesFromRequestOffset(t *testing.T) {
	// 01:30 UTC on the 15th is 20:30 on the 14th in CDT.
	utc := time.Date(2026, 10, 15, 1, 30, 0, 0, time.UTC)
	local := utc.In(zone)
	if got := evaluator().Evaluate(drm.Signal{Energy: drm.EnergyOK}, local, nil); got.Reason != drm.ReasonLateNoAction {
		t.Fatalf("expected local lateness, got %+v", got)
	}
	if got := evaluator().Evaluate(drm.Signal{Energy: drm.EnergyOK}, utc, nil); got.Triggered {
		t.Fatalf("expected no trigger at 01:30 UTC, got %+v", got)
	}
}
