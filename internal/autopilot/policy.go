// Package autopilot decides whether a freshly selected cook decision can be
// approved on the household's behalf, and records that approval at most once.
package autopilot

import (
	"time"

	"tonight/internal/config"
	"tonight/internal/ledger"
)

// Reason is the closed set of autopilot verdicts.
type Reason string

const (
	ReasonEnabled               Reason = "enabled"
	ReasonDisabled              Reason = "disabled"
	ReasonNotCookDecision       Reason = "not_cook_decision"
	ReasonOutsideWindow         Reason = "outside_autopilot_window"
	ReasonLowInventoryScore     Reason = "low_inventory_score"
	ReasonRecentRepeat          Reason = "recent_repeat"
	ReasonRecentUndo            Reason = "recent_undo"
	ReasonInsufficientDecisions Reason = "insufficient_decisions"
)

// Input is a just-produced decision and the context the gates need.
type Input struct {
	Decision       ledger.DecisionEvent
	InventoryScore float64
	TasteScore     float64
	Now            time.Time
	// History is the household's recent ledger, most recent first. The
	// decision under evaluation may or may not be included.
	History []ledger.DecisionEvent
}

// Verdict is the policy outcome.
type Verdict struct {
	Eligible bool
	Reason   Reason
}

// Policy holds the eligibility gates.
type Policy struct {
	Enabled           bool
	WindowStartHour   int
	WindowEndHour     int
	MinInventoryScore float64
	MinDecisions      int
	UndoCooldown      time.Duration
	RepeatWindow      time.Duration
}

// NewPolicy builds a Policy from autopilot configuration.
func NewPolicy(cfg config.Autopilot) *Policy {
	return &Policy{
		Enabled:           cfg.Enabled,
		WindowStartHour:   cfg.WindowStartHour,
		WindowEndHour:     cfg.WindowEndHour,
		MinInventoryScore: cfg.MinInventoryScore,
		MinDecisions:      cfg.MinDecisions,
		UndoCooldown:      time.Duration(cfg.UndoCooldownHours) * time.Hour,
		RepeatWindow:      time.Duration(cfg.RepeatDays) * 24 * time.Hour,
	}
}

// Evaluate runs every gate. A recent undo blocks autopilot whatever the
// other gates say, so it is reported ahead of them.
func (p *Policy) Evaluate(in Input) Verdict {
	history := withoutDecision(in.History, in.Decision.ID)
	switch {
	case !p.Enabled:
		return Verdict{Reason: ReasonDisabled}
	case in.Decision.Type != ledger.TypeCook || in.Decision.MealID == "":
		return Verdict{Reason: ReasonNotCookDecision}
	case RecentUndo(history, in.Now, p.UndoCooldown):
		return Verdict{Reason: ReasonRecentUndo}
	case !p.inWindow(in.Now):
		return Verdict{Reason: ReasonOutsideWindow}
	case in.InventoryScore < p.MinInventoryScore:
		return Verdict{Reason: ReasonLowInventoryScore}
	case UsedRecently(history, in.Decision.MealID, in.Now, p.RepeatWindow):
		return Verdict{Reason: ReasonRecentRepeat}
	case countDecisions(history) < p.MinDecisions:
		return Verdict{Reason: ReasonInsufficientDecisions}
	}
	return Verdict{Eligible: true, Reason: ReasonEnabled}
}

func (p *Policy) inWindow(now time.Time) bool {
	hour := now.Hour()
	return hour >= p.WindowStartHour && hour < p.WindowEndHour
}

// RecentUndo reports whether an undo was recorded within cooldown before now.
func RecentUndo(history []ledger.DecisionEvent, now time.Time, cooldown time.Duration) bool {
	for _, ev := range history {
		if !ev.Undo {
			continue
		}
		age := now.Sub(ev.DecidedAt)
		if age >= 0 && age <= cooldown {
			return true
		}
	}
	return false
}

// UsedRecently reports whether mealID was approved within window before now.
func UsedRecently(history []ledger.DecisionEvent, mealID string, now time.Time, window time.Duration) bool {
	if mealID == "" {
		return false
	}
	for _, ev := range history {
		if ev.MealID != mealID || ev.UserAction != ledger.ActionApproved {
			continue
		}
		age := now.Sub(ev.DecidedAt)
		if age >= 0 && age <= window {
			return true
		}
	}
	return false
}

func countDecisions(history []ledger.DecisionEvent) int {
	n := 0
	for _, ev := range history {
		if ev.IsRoot() {
			n++
		}
	}
	return n
}

func withoutDecision(history []ledger.DecisionEvent, id string) []ledger.DecisionEvent {
	out := make([]ledger.DecisionEvent, 0, len(history))
	for _, ev := range history {
		if ev.ID == id || ev.ParentID == id {
			continue
		}
		out = append(out, ev)
	}
	return out
}
