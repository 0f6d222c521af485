package drm

import (
	"time"

	"tonight/internal/config"
	"tonight/internal/ledger"
)

// Reason is the closed set of rescue reasons.
type Reason string

const (
	ReasonCalendarConflict Reason = "calendar_conflict"
	ReasonLowEnergy        Reason = "low_energy"
	ReasonTwoRejections    Reason = "two_rejections"
	ReasonLateNoAction     Reason = "late_no_action"
	ReasonHandleIt         Reason = "handle_it"
	ReasonImDone           Reason = "im_done"
)

// Valid reports whether r is a known reason.
func (r Reason) Valid() bool {
	switch r {
	case ReasonCalendarConflict, ReasonLowEnergy, ReasonTwoRejections, ReasonLateNoAction, ReasonHandleIt, ReasonImDone:
		return true
	}
	return false
}

// HighStress reports whether r justifies ordering in.
func (r Reason) HighStress() bool {
	switch r {
	case ReasonCalendarConflict, ReasonLowEnergy, ReasonLateNoAction, ReasonHandleIt, ReasonImDone:
		return true
	}
	return false
}

// Signal is the household's situational input for a request.
type Signal struct {
	TimeWindow       string `json:"timeWindow"`
	Energy           string `json:"energy"`
	CalendarConflict bool   `json:"calendarConflict"`
}

const (
	WindowEarly  = "early"
	WindowDinner = "dinner"
	WindowLate   = "late"

	EnergyLow  = "low"
	EnergyOK   = "ok"
	EnergyHigh = "high"
)

// ValidWindow reports whether w is a known time window.
func ValidWindow(w string) bool {
	return w == WindowEarly || w == WindowDinner || w == WindowLate
}

// ValidEnergy reports whether e is a known energy level.
func ValidEnergy(e string) bool {
	return e == EnergyLow || e == EnergyOK || e == EnergyHigh
}

// Trigger is the evaluator's verdict.
type Trigger struct {
	Triggered bool
	Reason    Reason
}

// Evaluator decides whether a request must bypass meal selection.
type Evaluator struct {
	RejectionWindow     time.Duration
	LateWindowStartHour int
	LateHour            int
}

// NewEvaluator builds an Evaluator from DRM configuration.
func NewEvaluator(cfg config.DRM) *Evaluator {
	return &Evaluator{
		RejectionWindow:     time.Duration(cfg.RejectionWindowMinutes) * time.Minute,
		LateWindowStartHour: cfg.LateWindowStartHour,
		LateHour:            cfg.LateHour,
	}
}

// Evaluate checks the triggers in priority order and returns the first that
// matches: calendar conflict, low energy, two quick rejections, lateness.
func (e *Evaluator) Evaluate(sig Signal, now time.Time, history []ledger.DecisionEvent) Trigger {
	switch {
	case sig.CalendarConflict:
		return Trigger{Triggered: true, Reason: ReasonCalendarConflict}
	case sig.Energy == EnergyLow:
		return Trigger{Triggered: true, Reason: ReasonLowEnergy}
	case HasTwoRejectionsWithinWindow(history, now, e.RejectionWindow):
		return Trigger{Triggered: true, Reason: ReasonTwoRejections}
	case e.lateNoAction(now, history):
		return Trigger{Triggered: true, Reason: ReasonLateNoAction}
	}
	return Trigger{}
}

// HasTwoRejectionsWithinWindow reports whether the two most recent
// rejections made on now's local date happened within window of each other.
// Undo copies are not rejections of a suggestion and are ignored.
func HasTwoRejectionsWithinWindow(history []ledger.DecisionEvent, now time.Time, window time.Duration) bool {
	var latest, previous time.Time
	for _, ev := range history {
		if ev.UserAction != ledger.ActionRejected || ev.Undo || !sameLocalDate(ev.DecidedAt, now) {
			continue
		}
		switch {
		case ev.DecidedAt.After(latest):
			previous, latest = latest, ev.DecidedAt
		case ev.DecidedAt.After(previous):
			previous = ev.DecidedAt
		}
	}
	if latest.IsZero() || previous.IsZero() {
		return false
	}
	return latest.Sub(previous) <= window
}

// lateNoAction folds each decision touched today to its current status. An
// approval that was later undone is not an approved dinner.
func (e *Evaluator) lateNoAction(now time.Time, history []ledger.DecisionEvent) bool {
	hour := now.Hour()
	if hour >= e.LateHour {
		return true
	}
	if hour < e.LateWindowStartHour {
		return false
	}

	roots := make(map[string]ledger.DecisionEvent)
	today := make(map[string]bool)
	for _, ev := range history {
		id := ev.RootID()
		if ev.IsRoot() {
			roots[id] = ev
		} else if _, ok := roots[id]; !ok {
			// Root fell outside the history window; fold its copies alone.
			roots[id] = ledger.DecisionEvent{ID: id, UserAction: ledger.ActionPending}
		}
		if sameLocalDate(ev.DecidedAt, now) {
			today[id] = true
		}
	}

	approved, shown := false, false
	for id := range today {
		status := ledger.CurrentStatus(roots[id], history)
		switch {
		case status.Action == ledger.ActionApproved && !status.Undone:
			approved = true
		case status.Undone, status.Action == ledger.ActionPending,
			status.Action == ledger.ActionRejected, status.Action == ledger.ActionExpired:
			shown = true
		}
	}
	return !approved && shown
}

func sameLocalDate(t, now time.Time) bool {
	if t.IsZero() {
		return false
	}
	ty, tm, td := t.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	return ty == ny && tm == nm && td == nd
}

// WindowFor buckets the local hour of t into early, dinner or late.
func WindowFor(t time.Time, dinnerStartHour, lateHour int) string {
	hour := t.Hour()
	switch {
	case hour < dinnerStartHour:
		return WindowEarly
	case hour < lateHour:
		return WindowDinner
	default:
		return WindowLate
	}
}
