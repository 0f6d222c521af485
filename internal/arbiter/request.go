package arbiter

import (
	"strings"
	"time"

	"tonight/internal/drm"
	"tonight/internal/ledger"
)

// Request is one household's decision request.
type Request struct {
	Household string
	// Now is the request's local time. Its offset decides the local hour and
	// date for every time-based rule.
	Now    time.Time
	Signal drm.Signal
}

// ParseNow parses an RFC 3339 timestamp and keeps its offset.
func ParseNow(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, ledger.Wrap(ledger.ErrValidation, "arbiter", "parse now", "expected RFC 3339 with offset", err)
	}
	return t, nil
}

func (r Request) normalized(dinnerStartHour, lateHour int) (Request, error) {
	r.Household = strings.TrimSpace(r.Household)
	if r.Household == "" {
		return r, ledger.Wrap(ledger.ErrValidation, "arbiter", "request", "household is required", nil)
	}
	if r.Now.IsZero() {
		return r, ledger.Wrap(ledger.ErrValidation, "arbiter", "request", "now is required", nil)
	}
	r.Signal.TimeWindow = strings.ToLower(strings.TrimSpace(r.Signal.TimeWindow))
	if r.Signal.TimeWindow == "" {
		r.Signal.TimeWindow = drm.WindowFor(r.Now, dinnerStartHour, lateHour)
	}
	if !drm.ValidWindow(r.Signal.TimeWindow) {
		return r, ledger.Wrap(ledger.ErrValidation, "arbiter", "request", "unknown time window "+r.Signal.TimeWindow, nil)
	}
	r.Signal.Energy = strings.ToLower(strings.TrimSpace(r.Signal.Energy))
	if r.Signal.Energy == "" {
		r.Signal.Energy = drm.EnergyOK
	}
	if !drm.ValidEnergy(r.Signal.Energy) {
		return r, ledger.Wrap(ledger.ErrValidation, "arbiter", "request", "unknown energy "+r.Signal.Energy, nil)
	}
	return r, nil
}
