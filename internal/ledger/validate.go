package ledger

import (
	"encoding/json"
	"strings"
)

func validateEvent(op string, e DecisionEvent) error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return Wrap(ErrValidation, "ledger", op, "event id is required", nil)
	case strings.TrimSpace(e.Household) == "":
		return Wrap(ErrValidation, "ledger", op, "household is required", nil)
	case e.DecidedAt.IsZero():
		return Wrap(ErrValidation, "ledger", op, "decided-at time is required", nil)
	case !e.Type.Valid():
		return Wrap(ErrValidation, "ledger", op, "unknown decision type "+string(e.Type), nil)
	case !e.UserAction.Valid():
		return Wrap(ErrValidation, "ledger", op, "unknown user action "+string(e.UserAction), nil)
	case e.MealID != "" && e.VendorKey != "":
		return Wrap(ErrValidation, "ledger", op, "meal id and vendor key are mutually exclusive", nil)
	case strings.TrimSpace(e.ContextHash) == "":
		return Wrap(ErrValidation, "ledger", op, "context hash is required", nil)
	case e.IsRoot() && e.UserAction != ActionPending && e.UserAction != ActionDRMTriggered:
		return Wrap(ErrValidation, "ledger", op, "root decisions start pending or drm_triggered", nil)
	case !e.IsRoot() && !e.UserAction.Terminal():
		return Wrap(ErrValidation, "ledger", op, "feedback copies must carry a terminal action", nil)
	case e.Undo && (e.IsRoot() || e.UserAction != ActionRejected):
		return Wrap(ErrValidation, "ledger", op, "undo is only valid on a rejected copy", nil)
	case len(e.Payload) > 0 && !json.Valid(e.Payload):
		return Wrap(ErrValidation, "ledger", op, "payload is not valid JSON", nil)
	}
	return nil
}

func validateSignal(op string, s TasteSignal) error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return Wrap(ErrValidation, "ledger", op, "signal id is required", nil)
	case strings.TrimSpace(s.DecisionEventID) == "":
		return Wrap(ErrValidation, "ledger", op, "signal must reference a decision event", nil)
	case strings.TrimSpace(s.Household) == "":
		return Wrap(ErrValidation, "ledger", op, "household is required", nil)
	case s.CreatedAt.IsZero():
		return Wrap(ErrValidation, "ledger", op, "created-at time is required", nil)
	}
	return nil
}

func validateExhausted(d DrmEvent) error {
	const op = "record exhausted rescue"
	switch {
	case strings.TrimSpace(d.ID) == "":
		return Wrap(ErrValidation, "ledger", op, "drm event id is required", nil)
	case strings.TrimSpace(d.Household) == "":
		return Wrap(ErrValidation, "ledger", op, "household is required", nil)
	case d.TriggeredAt.IsZero():
		return Wrap(ErrValidation, "ledger", op, "triggered-at time is required", nil)
	case !d.Exhausted:
		return Wrap(ErrValidation, "ledger", op, "drm event must be marked exhausted", nil)
	case d.DecisionEventID != "":
		return Wrap(ErrValidation, "ledger", op, "exhausted rescues carry no decision", nil)
	}
	return nil
}
