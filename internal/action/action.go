// Package action defines the single action object the arbiter hands back:
// cook a meal, order from a vendor, or a zero-effort fallback.
package action

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tonight/internal/ledger"
)

// Action is one decided dinner action. Only the fields that belong to its
// DecisionType are serialized.
type Action struct {
	DecisionType    ledger.DecisionType
	DecisionEventID string
	ContextHash     string
	MealID          string
	VendorKey       string
	DeepLinkURL     string
	Title           string
	Steps           []string
	EstMinutes      int
}

type cookJSON struct {
	DecisionType    ledger.DecisionType `json:"decisionType"`
	DecisionEventID string              `json:"decisionEventId"`
	MealID          string              `json:"mealId"`
	Title           string              `json:"title"`
	Steps           string              `json:"steps"`
	EstMinutes      int                 `json:"estMinutes"`
	ContextHash     string              `json:"contextHash"`
}

type orderJSON struct {
	DecisionType    ledger.DecisionType `json:"decisionType"`
	DecisionEventID string              `json:"decisionEventId"`
	VendorKey       string              `json:"vendorKey"`
	DeepLinkURL     string              `json:"deepLinkUrl"`
	Title           string              `json:"title"`
	ContextHash     string              `json:"contextHash"`
}

type zeroCookJSON struct {
	DecisionType    ledger.DecisionType `json:"decisionType"`
	DecisionEventID string              `json:"decisionEventId"`
	Title           string              `json:"title"`
	Steps           string              `json:"steps"`
	ContextHash     string              `json:"contextHash"`
}

// StepsText joins steps into the single newline-separated string the wire
// format carries.
func (a Action) StepsText() string {
	return strings.Join(a.Steps, "\n")
}

// MarshalJSON implements json.Marshaler.
func (a Action) MarshalJSON() ([]byte, error) {
	switch a.DecisionType {
	case ledger.TypeCook:
		return json.Marshal(cookJSON{
			DecisionType:    a.DecisionType,
			DecisionEventID: a.DecisionEventID,
			MealID:          a.MealID,
			Title:           a.Title,
			Steps:           a.StepsText(),
			EstMinutes:      a.EstMinutes,
			ContextHash:     a.ContextHash,
		})
	case ledger.TypeOrder:
		return json.Marshal(orderJSON{
			DecisionType:    a.DecisionType,
			DecisionEventID: a.DecisionEventID,
			VendorKey:       a.VendorKey,
			DeepLinkURL:     a.DeepLinkURL,
			Title:           a.Title,
			ContextHash:     a.ContextHash,
		})
	case ledger.TypeZeroCook:
		return json.Marshal(zeroCookJSON{
			DecisionType:    a.DecisionType,
			DecisionEventID: a.DecisionEventID,
			Title:           a.Title,
			Steps:           a.StepsText(),
			ContextHash:     a.ContextHash,
		})
	default:
		return nil, fmt.Errorf("marshal action: unknown decision type %q", a.DecisionType)
	}
}

// Decode parses a stored action payload.
func Decode(payload []byte) (Action, error) {
	var raw struct {
		DecisionType    ledger.DecisionType `json:"decisionType"`
		DecisionEventID string              `json:"decisionEventId"`
		ContextHash     string              `json:"contextHash"`
		MealID          string              `json:"mealId"`
		VendorKey       string              `json:"vendorKey"`
		DeepLinkURL     string              `json:"deepLinkUrl"`
		Title           string              `json:"title"`
		Steps           string              `json:"steps"`
		EstMinutes      int                 `json:"estMinutes"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Action{}, fmt.Errorf("decode action: %w", err)
	}
	a := Action{
		DecisionType:    raw.DecisionType,
		DecisionEventID: raw.DecisionEventID,
		ContextHash:     raw.ContextHash,
		MealID:          raw.MealID,
		VendorKey:       raw.VendorKey,
		DeepLinkURL:     raw.DeepLinkURL,
		Title:           raw.Title,
		EstMinutes:      raw.EstMinutes,
	}
	if raw.Steps != "" {
		a.Steps = strings.Split(raw.Steps, "\n")
	}
	return a, nil
}

// Event builds the root ledger row recording a.
func (a Action) Event(household string, decidedAt time.Time, userAction ledger.UserAction) (ledger.DecisionEvent, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return ledger.DecisionEvent{}, err
	}
	return ledger.DecisionEvent{
		ID:          a.DecisionEventID,
		Household:   household,
		DecidedAt:   decidedAt,
		Type:        a.DecisionType,
		MealID:      a.MealID,
		VendorKey:   a.VendorKey,
		ContextHash: a.ContextHash,
		Payload:     payload,
		UserAction:  userAction,
	}, nil
}

// Fallback is the permanent zero-effort action used when no meal can be
// chosen at all.
func Fallback(decisionEventID, contextHash string) Action {
	return Action{
		DecisionType:    ledger.TypeZeroCook,
		DecisionEventID: decisionEventID,
		ContextHash:     contextHash,
		Title:           "Snack plate",
		Steps: []string{
			"Put out whatever bread, cheese, fruit and crackers are on hand.",
			"Add a glass of milk or juice.",
		},
	}
}
