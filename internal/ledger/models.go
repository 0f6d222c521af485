package ledger

import (
	"encoding/json"
	"time"

	"tonight/internal/taste"
)

// DecisionType identifies the kind of action a decision carries.
type DecisionType string

const (
	TypeCook     DecisionType = "cook"
	TypeOrder    DecisionType = "order"
	TypeZeroCook DecisionType = "zero_cook"
)

// Valid reports whether t is a known decision type.
func (t DecisionType) Valid() bool {
	switch t {
	case TypeCook, TypeOrder, TypeZeroCook:
		return true
	}
	return false
}

// UserAction is the state recorded on a decision event.
type UserAction string

const (
	ActionPending      UserAction = "pending"
	ActionApproved     UserAction = "approved"
	ActionRejected     UserAction = "rejected"
	ActionExpired      UserAction = "expired"
	ActionDRMTriggered UserAction = "drm_triggered"
)

// Valid reports whether a is a known user action.
func (a UserAction) Valid() bool {
	switch a {
	case ActionPending, ActionApproved, ActionRejected, ActionExpired, ActionDRMTriggered:
		return true
	}
	return false
}

// Terminal reports whether a resolves a pending decision.
func (a UserAction) Terminal() bool {
	return a != ActionPending && a.Valid()
}

// DecisionEvent is one immutable ledger row. Root events carry no ParentID;
// feedback copies reference the root they resolve.
type DecisionEvent struct {
	ID          string
	Household   string
	DecidedAt   time.Time
	Type        DecisionType
	MealID      string
	VendorKey   string
	ContextHash string
	Payload     json.RawMessage
	UserAction  UserAction
	ParentID    string
	// Undo marks a rejected copy that reverses an earlier approval.
	Undo bool
}

// IsRoot reports whether the event is an arbitration outcome rather than a
// feedback copy.
func (e DecisionEvent) IsRoot() bool {
	return e.ParentID == ""
}

// RootID returns the id of the decision this event belongs to.
func (e DecisionEvent) RootID() string {
	if e.ParentID != "" {
		return e.ParentID
	}
	return e.ID
}

// TasteSignal is one append-only learning event derived from a resolved
// decision. DecisionEventID references the feedback copy that produced it.
type TasteSignal struct {
	ID              string
	DecisionEventID string
	Household       string
	MealID          string
	Features        taste.Features
	Weight          float64
	CreatedAt       time.Time
}

// TasteMealScore is the derived per-meal cache of signal weights.
type TasteMealScore struct {
	Household  string
	MealID     string
	Score      float64
	Approvals  int
	Rejections int
	LastSeenAt time.Time
}

// DrmEvent records one Dinner Rescue Mode invocation.
type DrmEvent struct {
	ID              string
	Household       string
	DecisionEventID string
	TriggeredAt     time.Time
	TriggerType     string
	TriggerReason   string
	RescueType      string
	RescuePayload   json.RawMessage
	Exhausted       bool
}
