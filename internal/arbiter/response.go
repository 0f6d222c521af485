package arbiter

import (
	"tonight/internal/action"
	"tonight/internal/autopilot"
	"tonight/internal/drm"
	"tonight/internal/selector"
)

// Response is the decision response. It carries exactly these four fields.
type Response struct {
	Decision       *action.Action `json:"decision"`
	DrmRecommended bool           `json:"drmRecommended"`
	Reason         string         `json:"reason,omitempty"`
	Autopilot      *bool          `json:"autopilot,omitempty"`
}

// RescueResponse is the DRM response.
type RescueResponse struct {
	Rescue    *action.Action `json:"rescue"`
	Exhausted bool           `json:"exhausted"`
}

// Outcome is a decided request: the validated response bytes plus the
// internals that produced them, for logging and the CLI.
type Outcome struct {
	Response Response
	JSON     []byte
	Trigger  drm.Trigger
	// Winner is nil on the rescue path and for the zero-cook fallback.
	Winner    *selector.Candidate
	SafeCore  bool
	Autopilot *autopilot.Outcome
}

// RescueOutcome is an explicit rescue.
type RescueOutcome struct {
	Response RescueResponse
	JSON     []byte
	Rescue   drm.Rescue
}
