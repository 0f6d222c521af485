// Package feedback resolves pending decisions. Every resolution is a new
// feedback copy in the ledger plus, for cook decisions, one taste signal;
// recorded rows are never changed.
package feedback

import (
	"context"
	"log/slog"
	"time"

	"tonight/internal/catalog"
	"tonight/internal/config"
	"tonight/internal/drm"
	"tonight/internal/inventory"
	"tonight/internal/ledger"
	"tonight/internal/logging"
	"tonight/internal/taste"
)

// Ledger is the ledger surface feedback writes through.
type Ledger interface {
	GenerateEventID() string
	ledger.DecisionReader
	ledger.FeedbackRecorder
}

// MealSource resolves the meal behind a cook decision and the inventory it
// was scored against.
type MealSource interface {
	MealByID(ctx context.Context, id string) (*catalog.Meal, error)
	Inventory(ctx context.Context, household string) ([]catalog.InventoryItem, error)
}

// Consumer receives pantry consumption for an approved cook decision.
type Consumer interface {
	ConsumeInventory(ctx context.Context, household string, itemIDs []string) error
}

// Result describes one resolution attempt.
type Result struct {
	Decision ledger.DecisionEvent
	Action   ledger.UserAction
	Undo     bool
	// Recorded is false when an identical copy already existed and nothing
	// was written.
	Recorded bool
	Copy     *ledger.DecisionEvent
	Signal   *ledger.TasteSignal
	Consumed []string

	// ConsumeErr is set when the resolution was recorded but the pantry could
	// not be updated. The resolution stands either way.
	ConsumeErr error
}

// Service records approvals, rejections, undos and expiries.
type Service struct {
	Ledger          Ledger
	Meals           MealSource
	Consumer        Consumer
	Scorer          *inventory.Scorer
	Weights         config.Feedback
	PendingTTL      time.Duration
	DinnerStartHour int
	LateHour        int
	Logger          *slog.Logger
}

// NewService wires a Service from configuration. meals and consumer may be
// nil; taste features then carry only the time of day and nothing is consumed.
func NewService(cfg *config.Config, store Ledger, meals MealSource, consumer Consumer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		Ledger:          store,
		Meals:           meals,
		Consumer:        consumer,
		Scorer:          inventory.NewScorer(cfg.Scoring),
		Weights:         cfg.Feedback,
		PendingTTL:      time.Duration(cfg.Feedback.PendingTTLMinutes) * time.Minute,
		DinnerStartHour: cfg.DRM.DinnerStartHour,
		LateHour:        cfg.DRM.LateHour,
		Logger:          logging.NewComponentLogger(logger, "feedback"),
	}
}

// Approve records that the household accepted the decision.
func (s *Service) Approve(ctx context.Context, decisionID string, at time.Time) (Result, error) {
	return s.resolveByID(ctx, "approve", decisionID, ledger.ActionApproved, false, at)
}

// Reject records that the household turned the decision down.
func (s *Service) Reject(ctx context.Context, decisionID string, at time.Time) (Result, error) {
	return s.resolveByID(ctx, "reject", decisionID, ledger.ActionRejected, false, at)
}

// Undo reverses an approval. It is recorded as a rejected copy flagged undo.
func (s *Service) Undo(ctx context.Context, decisionID string, at time.Time) (Result, error) {
	return s.resolveByID(ctx, "undo", decisionID, ledger.ActionRejected, true, at)
}

// Expire records that a pending decision went unanswered.
func (s *Service) Expire(ctx context.Context, decisionID string, at time.Time) (Result, error) {
	return s.resolveByID(ctx, "expire", decisionID, ledger.ActionExpired, false, at)
}

// AutoApprove implements the autopilot approver. It reports whether a new
// approval copy was written.
func (s *Service) AutoApprove(ctx context.Context, decision ledger.DecisionEvent, at time.Time) (bool, error) {
	res, err := s.resolve(ctx, "autopilot approve", decision, ledger.ActionApproved, false, at)
	if err != nil {
		return false, err
	}
	return res.Recorded, nil
}

// ExpireStale expires every pending decision of household older than the
// configured TTL at now.
func (s *Service) ExpireStale(ctx context.Context, household string, now time.Time) ([]Result, error) {
	cutoff := now.Add(-s.PendingTTL)
	stale, err := s.Ledger.UnresolvedBefore(ctx, household, cutoff)
	if err != nil {
		return nil, ledger.Wrap(ledger.ErrCollaborator, "feedback", "expire stale", household, err)
	}
	results := make([]Result, 0, len(stale))
	for _, decision := range stale {
		res, err := s.resolve(ctx, "expire", decision, ledger.ActionExpired, false, now)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	if len(results) > 0 {
		s.Logger.Info("expired stale decisions",
			logging.String(logging.FieldHousehold, household),
			logging.Int("count", len(results)),
		)
	}
	return results, nil
}

func (s *Service) resolveByID(ctx context.Context, op, decisionID string, act ledger.UserAction, undo bool, at time.Time) (Result, error) {
	decision, err := s.Ledger.DecisionByID(ctx, decisionID)
	if err != nil {
		return Result{}, ledger.Wrap(ledger.ErrCollaborator, "feedback", op, decisionID, err)
	}
	if decision == nil {
		return Result{}, ledger.Wrap(ledger.ErrNotFound, "feedback", op, "decision "+decisionID, nil)
	}
	return s.resolve(ctx, op, *decision, act, undo, at)
}

func (s *Service) resolve(ctx context.Context, op string, decision ledger.DecisionEvent, act ledger.UserAction, undo bool, at time.Time) (Result, error) {
	res := Result{Decision: decision, Action: act, Undo: undo}
	if !decision.IsRoot() {
		return res, ledger.Wrap(ledger.ErrValidation, "feedback", op, "event "+decision.ID+" is a feedback copy", nil)
	}

	copies, err := s.Ledger.Copies(ctx, decision.ID)
	if err != nil {
		return res, ledger.Wrap(ledger.ErrCollaborator, "feedback", op, decision.ID, err)
	}
	if ledger.HasCopy(copies, decision.ID, act, undo) {
		return res, nil
	}
	if err := checkTransition(op, decision, ledger.CurrentStatus(decision, copies), act, undo); err != nil {
		return res, err
	}

	feedbackCopy := ledger.DecisionEvent{
		ID:          s.Ledger.GenerateEventID(),
		Household:   decision.Household,
		DecidedAt:   at,
		Type:        decision.Type,
		MealID:      decision.MealID,
		VendorKey:   decision.VendorKey,
		ContextHash: decision.ContextHash,
		Payload:     decision.Payload,
		UserAction:  act,
		ParentID:    decision.ID,
		Undo:        undo,
	}

	var meal *catalog.Meal
	if decision.Type == ledger.TypeCook && decision.MealID != "" && s.Meals != nil {
		meal, err = s.Meals.MealByID(ctx, decision.MealID)
		if err != nil {
			return res, ledger.Wrap(ledger.ErrCollaborator, "feedback", op, "load meal "+decision.MealID, err)
		}
	}
	signal := s.signalFor(feedbackCopy, meal, decision.DecidedAt)

	recorded, err := s.Ledger.RecordFeedback(ctx, feedbackCopy, signal)
	if err != nil {
		return res, err
	}
	if !recorded {
		return res, nil
	}
	res.Recorded = true
	res.Copy = &feedbackCopy
	res.Signal = signal

	if act == ledger.ActionApproved && meal != nil {
		consumed, err := s.consume(ctx, decision.Household, *meal, at)
		if err != nil {
			res.ConsumeErr = err
			s.Logger.Warn("pantry not updated after approval",
				logging.String(logging.FieldHousehold, decision.Household),
				logging.String(logging.FieldDecisionID, decision.ID),
				logging.String("error", err.Error()),
				logging.Alert("consume_failed"),
			)
		}
		res.Consumed = consumed
	}

	s.Logger.Info("decision resolved",
		logging.String(logging.FieldHousehold, decision.Household),
		logging.String(logging.FieldDecisionID, decision.ID),
		logging.String(logging.FieldDecisionType, string(decision.Type)),
		logging.String("action", string(act)),
		logging.Bool("undo", undo),
	)
	return res, nil
}

func checkTransition(op string, decision ledger.DecisionEvent, status ledger.Status, act ledger.UserAction, undo bool) error {
	open := status.Copy == nil && (status.Action == ledger.ActionPending || status.Action == ledger.ActionDRMTriggered)
	switch {
	case undo:
		if status.Action != ledger.ActionApproved || status.Undone {
			return ledger.Wrap(ledger.ErrConflict, "feedback", op, "decision "+decision.ID+" is not approved", nil)
		}
	case act == ledger.ActionExpired:
		if status.Copy != nil || status.Action != ledger.ActionPending {
			return ledger.Wrap(ledger.ErrConflict, "feedback", op, "decision "+decision.ID+" is not pending", nil)
		}
	case !open:
		return ledger.Wrap(ledger.ErrConflict, "feedback", op,
			"decision "+decision.ID+" already "+string(status.Action), nil)
	}
	return nil
}

func (s *Service) signalFor(feedbackCopy ledger.DecisionEvent, meal *catalog.Meal, decidedAt time.Time) *ledger.TasteSignal {
	if feedbackCopy.Type != ledger.TypeCook || feedbackCopy.MealID == "" {
		return nil
	}
	var features taste.Features
	timeOfDay := drm.WindowFor(decidedAt, s.DinnerStartHour, s.LateHour)
	if meal != nil {
		features = taste.ExtractFeatures(*meal, timeOfDay)
	} else {
		features = taste.Features{TimeOfDay: timeOfDay}
	}
	return &ledger.TasteSignal{
		ID:              s.Ledger.GenerateEventID(),
		DecisionEventID: feedbackCopy.ID,
		Household:       feedbackCopy.Household,
		MealID:          feedbackCopy.MealID,
		Features:        features,
		Weight:          s.weight(feedbackCopy.UserAction, feedbackCopy.Undo),
		CreatedAt:       feedbackCopy.DecidedAt,
	}
}

func (s *Service) weight(act ledger.UserAction, undo bool) float64 {
	switch {
	case undo:
		return s.Weights.UndoWeight
	case act == ledger.ActionApproved:
		return s.Weights.ApproveWeight
	case act == ledger.ActionRejected:
		return s.Weights.RejectWeight
	case act == ledger.ActionExpired:
		return s.Weights.ExpireWeight
	}
	return 0
}

func (s *Service) consume(ctx context.Context, household string, meal catalog.Meal, at time.Time) ([]string, error) {
	if s.Consumer == nil || s.Meals == nil || s.Scorer == nil {
		return nil, nil
	}
	items, err := s.Meals.Inventory(ctx, household)
	if err != nil {
		return nil, ledger.Wrap(ledger.ErrCollaborator, "feedback", "consume", "load inventory", err)
	}
	result, err := s.Scorer.Evaluate(meal, items, at)
	if err != nil {
		return nil, ledger.Wrap(ledger.ErrCollaborator, "feedback", "consume", "match inventory", err)
	}
	ids := result.MatchedItemIDs()
	if len(ids) == 0 {
		return nil, nil
	}
	if err := s.Consumer.ConsumeInventory(ctx, household, ids); err != nil {
		return nil, ledger.Wrap(ledger.ErrCollaborator, "feedback", "consume", meal.ID, err)
	}
	return ids, nil
}
