package arbiter

import (
	"context"
	"log/slog"
	"time"

	"tonight/internal/action"
	"tonight/internal/autopilot"
	"tonight/internal/catalog"
	"tonight/internal/config"
	"tonight/internal/drm"
	"tonight/internal/invariant"
	"tonight/internal/ledger"
	"tonight/internal/logging"
	"tonight/internal/rotation"
	"tonight/internal/selector"
)

const (
	triggerAuto     = "auto"
	triggerExplicit = "explicit"

	defaultHistoryLimit = 200
	fallbackHashKey     = "fallback"
)

// Ledger is the ledger surface the arbiter reads and writes.
type Ledger interface {
	ledger.DecisionLog
	ledger.DecisionReader
	ledger.RescueRecorder
	TasteScores(ctx context.Context, household string) (map[string]ledger.TasteMealScore, error)
}

// Arbiter decides one dinner action per request.
type Arbiter struct {
	Ledger    Ledger
	Catalog   catalog.Reader
	Selector  *selector.Selector
	Triggers  *drm.Evaluator
	Rescuer   *drm.Rescuer
	Autopilot *autopilot.Applier
	// AutoRescue answers a tripped trigger with the rescue itself instead of
	// an empty drmRecommended response.
	AutoRescue      bool
	DinnerStartHour int
	LateHour        int
	HistoryLimit    int
	Logger          *slog.Logger
}

// New wires an Arbiter from configuration. approver may be nil, which leaves
// autopilot out entirely.
func New(cfg *config.Config, store Ledger, cat catalog.Reader, approver autopilot.Approver, logger *slog.Logger) *Arbiter {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "arbiter")
	a := &Arbiter{
		Ledger:          store,
		Catalog:         cat,
		Selector:        selector.New(cfg.Scoring),
		Triggers:        drm.NewEvaluator(cfg.DRM),
		Rescuer:         drm.NewRescuer(cfg.DRM),
		AutoRescue:      cfg.DRM.AutoRescue,
		DinnerStartHour: cfg.DRM.DinnerStartHour,
		LateHour:        cfg.DRM.LateHour,
		HistoryLimit:    defaultHistoryLimit,
		Logger:          logger,
	}
	if approver != nil {
		a.Autopilot = &autopilot.Applier{
			Policy:   autopilot.NewPolicy(cfg.Autopilot),
			Copies:   store,
			Approver: approver,
			Logger:   logger,
		}
	}
	return a
}

// Decide produces the single response for req.
func (a *Arbiter) Decide(ctx context.Context, req Request) (Outcome, error) {
	req, err := req.normalized(a.DinnerStartHour, a.LateHour)
	if err != nil {
		return Outcome{}, err
	}
	ctx = logging.WithHousehold(ctx, req.Household)
	logger := logging.WithContext(ctx, a.Logger)

	snap, err := a.load(ctx, req.Household, true)
	if err != nil {
		return Outcome{}, err
	}
	rc := a.hashContext(req, snap)

	trigger := a.Triggers.Evaluate(req.Signal, req.Now, snap.history)
	if trigger.Triggered {
		return a.decideRescue(ctx, logger, req, rc, trigger)
	}

	sel, err := a.Selector.Select(selector.Input{
		Meals:         snap.meals,
		Inventory:     snap.items,
		RawTaste:      snap.rawTaste(),
		RecentMealIDs: ledger.RecentMealIDs(snap.history),
		Context:       rc,
		Now:           req.Now,
	})
	if err != nil {
		return Outcome{}, ledger.Wrap(ledger.ErrCollaborator, "arbiter", "select meal", req.Household, err)
	}

	id := a.Ledger.GenerateEventID()
	var chosen action.Action
	var inventoryScore, tasteScore float64
	if sel.Winner == nil {
		chosen = action.Fallback(id, rotation.ContextHash(rc, fallbackHashKey))
		logger.Warn("no meal candidates; using zero-cook fallback",
			logging.String(logging.FieldDecisionID, id),
			logging.Alert("empty_catalog"),
		)
	} else {
		meal := sel.Winner.Meal
		chosen = action.Action{
			DecisionType:    ledger.TypeCook,
			DecisionEventID: id,
			ContextHash:     rotation.ContextHash(rc, meal.CanonicalKey),
			MealID:          meal.ID,
			Title:           meal.Name,
			Steps:           instructionSteps(meal.Instructions),
			EstMinutes:      meal.EstMinutes,
		}
		inventoryScore = sel.Winner.InventoryScore
		tasteScore = sel.Winner.TasteScore
	}

	event, err := a.persist(ctx, req.Household, req.Now, chosen, ledger.ActionPending)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Trigger: trigger, Winner: sel.Winner, SafeCore: sel.SafeCore}
	resp := Response{Decision: &chosen}
	if a.Autopilot != nil {
		pilot, err := a.Autopilot.Apply(ctx, autopilot.Input{
			Decision:       event,
			InventoryScore: inventoryScore,
			TasteScore:     tasteScore,
			Now:            req.Now,
			History:        snap.history,
		})
		if err != nil {
			return Outcome{}, err
		}
		approved := pilot.Verdict.Eligible
		resp.Autopilot = &approved
		out.Autopilot = &pilot
	}

	payload, err := invariant.MarshalResponse(resp)
	if err != nil {
		return Outcome{}, err
	}
	out.Response = resp
	out.JSON = payload

	attrs := []logging.Attr{
		logging.String(logging.FieldDecisionID, id),
		logging.String(logging.FieldDecisionType, string(chosen.DecisionType)),
		logging.Bool("safe_core", sel.SafeCore),
	}
	if sel.Winner != nil {
		attrs = append(attrs,
			logging.String("meal_key", sel.Winner.Meal.CanonicalKey),
			logging.Float64("final_score", sel.Winner.Final),
		)
	}
	if out.Autopilot != nil {
		attrs = append(attrs, logging.String("autopilot_reason", string(out.Autopilot.Verdict.Reason)))
	}
	logger.Info("decision made", logging.Args(attrs...)...)
	return out, nil
}

// Rescue runs an explicit rescue, such as "handle it" or "I'm done", outside
// the trigger evaluator.
func (a *Arbiter) Rescue(ctx context.Context, req Request, reason drm.Reason) (RescueOutcome, error) {
	if !reason.Valid() {
		return RescueOutcome{}, ledger.Wrap(ledger.ErrValidation, "arbiter", "rescue", "unknown reason "+string(reason), nil)
	}
	req, err := req.normalized(a.DinnerStartHour, a.LateHour)
	if err != nil {
		return RescueOutcome{}, err
	}
	ctx = logging.WithHousehold(ctx, req.Household)
	logger := logging.WithContext(ctx, a.Logger)

	snap, err := a.load(ctx, req.Household, false)
	if err != nil {
		return RescueOutcome{}, err
	}
	rescue, err := a.rescue(ctx, logger, req, a.hashContext(req, snap), reason, triggerExplicit)
	if err != nil {
		return RescueOutcome{}, err
	}

	resp := RescueResponse{Rescue: rescue.Action, Exhausted: rescue.Exhausted}
	payload, err := invariant.MarshalRescue(resp)
	if err != nil {
		return RescueOutcome{}, err
	}
	return RescueOutcome{Response: resp, JSON: payload, Rescue: rescue}, nil
}

func (a *Arbiter) decideRescue(ctx context.Context, logger *slog.Logger, req Request, rc rotation.Context, trigger drm.Trigger) (Outcome, error) {
	out := Outcome{Trigger: trigger}
	resp := Response{DrmRecommended: true, Reason: string(trigger.Reason)}
	if a.AutoRescue {
		rescue, err := a.rescue(ctx, logger, req, rc, trigger.Reason, triggerAuto)
		if err != nil {
			return Outcome{}, err
		}
		resp.Decision = rescue.Action
	} else {
		logger.Info("rescue recommended", logging.String(logging.FieldReason, string(trigger.Reason)))
	}

	payload, err := invariant.MarshalResponse(resp)
	if err != nil {
		return Outcome{}, err
	}
	out.Response = resp
	out.JSON = payload
	return out, nil
}

// rescue selects, validates and records one rescue. An exhausted rescue
// is recorded as a drm event with no decision row.
func (a *Arbiter) rescue(ctx context.Context, logger *slog.Logger, req Request, rc rotation.Context, reason drm.Reason, triggerType string) (drm.Rescue, error) {
	id := a.Ledger.GenerateEventID()
	rescue, err := a.Rescuer.Select(ctx, drm.Request{
		Household:       req.Household,
		DecisionEventID: id,
		Reason:          reason,
		Now:             req.Now,
		HashFor:         func(key string) string { return rotation.ContextHash(rc, key) },
	})
	if err != nil {
		return drm.Rescue{}, err
	}
	if rescue.Action == nil {
		record := ledger.DrmEvent{
			ID:            a.Ledger.GenerateEventID(),
			Household:     req.Household,
			TriggeredAt:   req.Now,
			TriggerType:   triggerType,
			TriggerReason: string(reason),
			Exhausted:     true,
		}
		if err := a.Ledger.RecordExhausted(ctx, record); err != nil {
			return drm.Rescue{}, ledger.Wrap(ledger.ErrCollaborator, "arbiter", "record exhausted rescue", record.ID, err)
		}
		logger.Warn("rescue exhausted",
			logging.String(logging.FieldReason, string(reason)),
			logging.String("trigger", triggerType),
			logging.Alert("rescue_exhausted"),
		)
		return rescue, nil
	}

	payload, err := invariant.MarshalAction(rescue.Action)
	if err != nil {
		return drm.Rescue{}, err
	}
	event, err := rescue.Action.Event(req.Household, req.Now, ledger.ActionDRMTriggered)
	if err != nil {
		return drm.Rescue{}, err
	}
	event.Payload = payload
	record := ledger.DrmEvent{
		ID:              a.Ledger.GenerateEventID(),
		Household:       req.Household,
		DecisionEventID: id,
		TriggeredAt:     req.Now,
		TriggerType:     triggerType,
		TriggerReason:   string(reason),
		RescueType:      string(rescue.Action.DecisionType),
		RescuePayload:   payload,
	}
	if err := a.Ledger.RecordRescue(ctx, event, record); err != nil {
		return drm.Rescue{}, ledger.Wrap(ledger.ErrCollaborator, "arbiter", "record rescue", id, err)
	}

	logger.Info("rescue issued",
		logging.String(logging.FieldDecisionID, id),
		logging.String(logging.FieldDecisionType, string(rescue.Action.DecisionType)),
		logging.String(logging.FieldReason, string(reason)),
		logging.String("trigger", triggerType),
	)
	return rescue, nil
}

// persist validates a and stores it as a root decision.
func (a *Arbiter) persist(ctx context.Context, household string, now time.Time, chosen action.Action, state ledger.UserAction) (ledger.DecisionEvent, error) {
	payload, err := invariant.MarshalAction(chosen)
	if err != nil {
		return ledger.DecisionEvent{}, err
	}
	event, err := chosen.Event(household, now, state)
	if err != nil {
		return ledger.DecisionEvent{}, err
	}
	event.Payload = payload
	if err := a.Ledger.PersistDecisionEvent(ctx, event); err != nil {
		return ledger.DecisionEvent{}, ledger.Wrap(ledger.ErrCollaborator, "arbiter", "persist decision", event.ID, err)
	}
	return event, nil
}

func (a *Arbiter) hashContext(req Request, snap snapshot) rotation.Context {
	return rotation.Context{
		TimeWindow:       req.Signal.TimeWindow,
		Energy:           req.Signal.Energy,
		CalendarConflict: req.Signal.CalendarConflict,
		InventoryNames:   snap.inventoryNames(),
	}
}
