package autopilot_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tonight/internal/action"
	"tonight/internal/autopilot"
	"tonight/internal/config"
	"tonight/internal/feedback"
	"tonight/internal/ledger"
	"tonight/internal/testsupport"
)

var afternoon = time.Date(2026, 3, 10, 16, 0, 0, 0, time.FixedZone("PST", -8*3600))

func root(id, mealID string, at time.Time) ledger.DecisionEvent {
	return ledger.DecisionEvent{
		ID:          id,
		Household:   "test-household",
		DecidedAt:   at,
		Type:        ledger.TypeCook,
		MealID:      mealID,
		ContextHash: "hash-" + id,
		UserAction:  ledger.ActionPending,
	}
}

func feedbackCopy(parent ledger.DecisionEvent, act ledger.UserAction, undo bool, at time.Time) ledger.DecisionEvent {
	ev := parent
	ev.ID = parent.ID + "-" + string(act)
	ev.ParentID = parent.ID
	ev.UserAction = act
	ev.Undo = undo
	ev.DecidedAt = at
	return ev
}

// priorHistory is five resolved decisions for other meals, a week back.
func priorHistory() []ledger.DecisionEvent {
	var history []ledger.DecisionEvent
	for i := 0; i < 5; i++ {
		history = append(history, root(fmt.Sprintf("old-%d", i), fmt.Sprintf("meal-other-%d", i), afternoon.AddDate(0, 0, -7-i)))
	}
	return history
}

func eligibleInput() autopilot.Input {
	return autopilot.Input{
		Decision:       root("dec-1", "meal-tacos", afternoon),
		InventoryScore: 0.9,
		TasteScore:     0.6,
		Now:            afternoon,
		History:        priorHistory(),
	}
}

func TestPolicyGates(t *testing.T) {
	policy := autopilot.NewPolicy(config.Default().Autopilot)

	tests := []struct {
		name   string
		mutate func(*autopilot.Input, *autopilot.Policy)
		want   autopilot.Reason
	}{
		{"eligible", func(*autopilot.Input, *autopilot.Policy) {}, autopilot.ReasonEnabled},
		{"disabled", func(_ *autopilot.Input, p *autopilot.Policy) { p.Enabled = false }, autopilot.ReasonDisabled},
		{"order decision", func(in *autopilot.Input, _ *autopilot.Policy) {
			in.Decision.Type = ledger.TypeOrder
			in.Decision.MealID = ""
			in.Decision.VendorKey = "default_vendor"
		}, autopilot.ReasonNotCookDecision},
		{"before window", func(in *autopilot.Input, _ *autopilot.Policy) {
			in.Now = afternoon.Add(-2 * time.Hour)
		}, autopilot.ReasonOutsideWindow},
		{"window end is exclusive", func(in *autopilot.Input, _ *autopilot.Policy) {
			in.Now = afternoon.Add(2 * time.Hour)
		}, autopilot.ReasonOutsideWindow},
		{"low inventory", func(in *autopilot.Input, _ *autopilot.Policy) {
			in.InventoryScore = 0.79
		}, autopilot.ReasonLowInventoryScore},
		{"recent repeat", func(in *autopilot.Input, _ *autopilot.Policy) {
			prev := root("prev", "meal-tacos", afternoon.AddDate(0, 0, -2))
			in.History = append(in.History, prev, feedbackCopy(prev, ledger.ActionApproved, false, prev.DecidedAt))
		}, autopilot.ReasonRecentRepeat},
		{"repeat outside window", func(in *autopilot.Input, _ *autopilot.Policy) {
			prev := root("prev", "meal-tacos", afternoon.AddDate(0, 0, -4))
			in.History = append(in.History, prev, feedbackCopy(prev, ledger.ActionApproved, false, prev.DecidedAt))
		}, autopilot.ReasonEnabled},
		{"insufficient decisions", func(in *autopilot.Input, _ *autopilot.Policy) {
			in.History = in.History[:4]
		}, autopilot.ReasonInsufficientDecisions},
		{"current decision is not history", func(in *autopilot.Input, _ *autopilot.Policy) {
			in.History = append(in.History[:4], in.Decision)
		}, autopilot.ReasonInsufficientDecisions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := eligibleInput()
			p := *policy
			tt.mutate(&in, &p)
			got := p.Evaluate(in)
			if got.Reason != tt.want {
				t.Fatalf("reason = %q, want %q", got.Reason, tt.want)
			}
			if got.Eligible != (tt.want == autopilot.ReasonEnabled) {
				t.Fatalf("eligible = %v for reason %q", got.Eligible, got.Reason)
			}
		})
	}
}

func TestRecentUndoCooldown(t *testing.T) {
	policy := autopilot.NewPolicy(config.Default().Autopilot)

	tests := []struct {
		name string
		age  time.Duration
		want autopilot.Reason
	}{
		{"undo 24h ago blocks", 24 * time.Hour, autopilot.ReasonRecentUndo},
		{"undo 96h ago does not", 96 * time.Hour, autopilot.ReasonEnabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := eligibleInput()
			prev := root("undone", "meal-other-9", afternoon.Add(-tt.age-time.Hour))
			in.History = append(in.History,
				prev,
				feedbackCopy(prev, ledger.ActionApproved, false, prev.DecidedAt),
				feedbackCopy(prev, ledger.ActionRejected, true, afternoon.Add(-tt.age)),
			)
			if got := policy.Evaluate(in).Reason; got != tt.want {
				t.Fatalf("reason = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecentUndoWinsOverOtherGates(t *testing.T) {
	policy := autopilot.NewPolicy(config.Default().Autopilot)
	in := eligibleInput()
	in.InventoryScore = 0.1
	prev := root("undone", "meal-other-9", afternoon.Add(-3*time.Hour))
	in.History = append(in.History, prev, feedbackCopy(prev, ledger.ActionRejected, true, afternoon.Add(-time.Hour)))
	if got := policy.Evaluate(in).Reason; got != autopilot.ReasonRecentUndo {
		t.Fatalf("reason = %q, want recent_undo", got)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	cat := testsupport.NewCatalog(testsupport.Meal("tacos", 25, "tortillas")).
		WithInventory("test-household", testsupport.Item("test-household", "tortillas", 1.0, afternoon.Add(-time.Hour)))
	service := feedback.NewService(cfg, store, cat, cat, nil)

	in := eligibleInput()
	decision := action.Action{
		DecisionType:    ledger.TypeCook,
		DecisionEventID: in.Decision.ID,
		ContextHash:     in.Decision.ContextHash,
		MealID:          in.Decision.MealID,
		Title:           "tacos",
		Steps:           []string{"Warm tortillas"},
		EstMinutes:      25,
	}
	ev, err := decision.Event("test-household", afternoon, ledger.ActionPending)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if err := store.PersistDecisionEvent(ctx, ev); err != nil {
		t.Fatalf("persist: %v", err)
	}
	in.Decision = ev

	applier := &autopilot.Applier{Policy: autopilot.NewPolicy(cfg.Autopilot), Copies: store, Approver: service}
	inserted := 0
	for i := 0; i < 3; i++ {
		out, err := applier.Apply(ctx, in)
		if err != nil {
			t.Fatalf("Apply #%d: %v", i, err)
		}
		if !out.Verdict.Eligible {
			t.Fatalf("expected eligible, got %q", out.Verdict.Reason)
		}
		if out.Inserted {
			inserted++
		}
	}
	if inserted != 1 {
		t.Fatalf("expected exactly one insert, got %d", inserted)
	}

	copies, _ := store.Copies(ctx, ev.ID)
	if len(copies) != 1 || copies[0].UserAction != ledger.ActionApproved || copies[0].ContextHash != ev.ContextHash {
		t.Fatalf("unexpected copies %+v", copies)
	}
	scores, _ := store.TasteScores(ctx, "test-household")
	if got := scores["meal-tacos"]; got.Approvals != 1 {
		t.Fatalf("taste approvals = %d, want 1", got.Approvals)
	}
	if cat.ConsumeCalls() != 1 {
		t.Fatalf("consumption calls = %d, want 1", cat.ConsumeCalls())
	}
}

type countingApprover struct{ calls int }

func (c *countingApprover) AutoApprove(context.Context, ledger.DecisionEvent, time.Time) (bool, error) {
	c.calls++
	return true, nil
}

func TestApplySkipsIneligibleWithoutWriting(t *testing.T) {
	approver := &countingApprover{}
	applier := &autopilot.Applier{
		Policy:   autopilot.NewPolicy(config.Default().Autopilot),
		Copies:   ledger.NewMemoryStore(),
		Approver: approver,
	}
	in := eligibleInput()
	in.InventoryScore = 0.2
	out, err := applier.Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.Verdict.Reason != autopilot.ReasonLowInventoryScore || out.Inserted || approver.calls != 0 {
		t.Fatalf("unexpected outcome %+v calls=%d", out, approver.calls)
	}
}
