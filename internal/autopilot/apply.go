package autopilot

import (
	"context"
	"log/slog"
	"time"

	"tonight/internal/ledger"
	"tonight/internal/logging"
)

// Approver records an approval for a pending decision, including its taste
// signal and consumption. It reports whether a new approval was written.
type Approver interface {
	AutoApprove(ctx context.Context, decision ledger.DecisionEvent, at time.Time) (bool, error)
}

// CopyReader reads feedback copies for a decision.
type CopyReader interface {
	Copies(ctx context.Context, rootID string) ([]ledger.DecisionEvent, error)
}

// Outcome reports what Apply did.
type Outcome struct {
	Verdict  Verdict
	Inserted bool
}

// Applier evaluates the policy and inserts the approval copy.
type Applier struct {
	Policy   *Policy
	Copies   CopyReader
	Approver Approver
	Logger   *slog.Logger
}

// Apply evaluates in and, when eligible, approves the decision. Calling it
// again for the same decision never writes a second approval: the existing
// copy is checked before any write.
func (a *Applier) Apply(ctx context.Context, in Input) (Outcome, error) {
	logger := a.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	verdict := a.Policy.Evaluate(in)
	out := Outcome{Verdict: verdict}
	if !verdict.Eligible {
		logger.Debug("autopilot skipped",
			logging.String(logging.FieldDecisionID, in.Decision.ID),
			logging.String(logging.FieldReason, string(verdict.Reason)),
		)
		return out, nil
	}

	copies, err := a.Copies.Copies(ctx, in.Decision.ID)
	if err != nil {
		return out, ledger.Wrap(ledger.ErrCollaborator, "autopilot", "read copies", in.Decision.ID, err)
	}
	if ledger.HasCopy(copies, in.Decision.ID, ledger.ActionApproved, false) {
		logger.Debug("autopilot approval already recorded", logging.String(logging.FieldDecisionID, in.Decision.ID))
		return out, nil
	}

	inserted, err := a.Approver.AutoApprove(ctx, in.Decision, in.Now)
	if err != nil {
		return out, err
	}
	out.Inserted = inserted
	if inserted {
		logger.Info("autopilot approved decision",
			logging.String(logging.FieldDecisionID, in.Decision.ID),
			logging.String("meal_id", in.Decision.MealID),
			logging.Float64("inventory_score", in.InventoryScore),
			logging.Float64("taste_score", in.TasteScore),
		)
	}
	return out, nil
}
