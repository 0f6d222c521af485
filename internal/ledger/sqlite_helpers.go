package ledger

import (
	"database/sql"
	"encoding/json"
	"time"
)

const eventColumns = "id, household, decided_at, decision_type, meal_id, vendor_key, context_hash, payload, user_action, parent_id, undo"

func scanEvent(scanner interface{ Scan(dest ...any) error }) (DecisionEvent, error) {
	var (
		ev        DecisionEvent
		decidedAt string
		evType    string
		mealID    sql.NullString
		vendorKey sql.NullString
		payload   string
		action    string
		parentID  sql.NullString
		undo      int
	)
	if err := scanner.Scan(
		&ev.ID,
		&ev.Household,
		&decidedAt,
		&evType,
		&mealID,
		&vendorKey,
		&ev.ContextHash,
		&payload,
		&action,
		&parentID,
		&undo,
	); err != nil {
		return DecisionEvent{}, err
	}
	ev.DecidedAt = parseTime(decidedAt)
	ev.Type = DecisionType(evType)
	ev.MealID = mealID.String
	ev.VendorKey = vendorKey.String
	ev.Payload = json.RawMessage(payload)
	ev.UserAction = UserAction(action)
	ev.ParentID = parentID.String
	ev.Undo = undo != 0
	return ev, nil
}

// formatTime keeps the caller's offset so local-date reasoning survives a
// round trip.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	return time.Time{}
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
