package drm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"tonight/internal/action"
	"tonight/internal/config"
	"tonight/internal/ledger"
)

// Move is a canned zero-cook rescue.
type Move struct {
	Key   string
	Title string
	Steps []string
}

// DefaultMoves are the canned zero-cook rescues. Reasons index into this
// list through moveIndex.
var DefaultMoves = []Move{
	{
		Key:   "cereal_and_fruit",
		Title: "Cereal and fruit",
		Steps: []string{"Pour a bowl of cereal with milk.", "Slice whatever fruit is on the counter."},
	},
	{
		Key:   "snack_plate",
		Title: "Cheese and cracker plate",
		Steps: []string{"Lay out cheese, crackers and any cut vegetables.", "Add fruit or nuts if you have them."},
	},
	{
		Key:   "pb_toast",
		Title: "Peanut butter toast",
		Steps: []string{"Toast two slices of bread.", "Spread peanut butter and top with banana or honey."},
	},
	{
		Key:   "yogurt_bowl",
		Title: "Yogurt bowl",
		Steps: []string{"Spoon yogurt into a bowl.", "Top with granola, fruit or honey."},
	},
}

var moveIndex = map[Reason]int{
	ReasonCalendarConflict: 1,
	ReasonLowEnergy:        2,
	ReasonTwoRejections:    0,
	ReasonLateNoAction:     3,
	ReasonHandleIt:         1,
	ReasonImDone:           2,
}

// VendorLinker builds the deep link for an order rescue.
type VendorLinker interface {
	DeepLink(ctx context.Context, vendorKey, household, decisionID string) (string, error)
}

// TemplateLinker fills {vendor}, {household} and {decision} placeholders in
// a URL template with query-escaped values.
type TemplateLinker struct {
	Template string
}

// DeepLink implements VendorLinker.
func (l TemplateLinker) DeepLink(_ context.Context, vendorKey, household, decisionID string) (string, error) {
	if strings.TrimSpace(l.Template) == "" {
		return "", errors.New("deep link template is empty")
	}
	link := strings.NewReplacer(
		"{vendor}", url.PathEscape(vendorKey),
		"{household}", url.QueryEscape(household),
		"{decision}", url.QueryEscape(decisionID),
	).Replace(l.Template)
	if _, err := url.Parse(link); err != nil {
		return "", fmt.Errorf("deep link: %w", err)
	}
	return link, nil
}

// Request identifies the decision a rescue is produced for.
type Request struct {
	Household       string
	DecisionEventID string
	Reason          Reason
	Now             time.Time
	// HashFor returns the context hash for the chosen rescue key.
	HashFor func(key string) string
}

// Rescue is the single override action produced for a trigger.
type Rescue struct {
	Action     *action.Action
	Reason     Reason
	Confidence float64
	// Exhausted is set only when no rescue could be produced.
	Exhausted bool
}

// Rescuer picks the rescue action for a triggered request.
type Rescuer struct {
	DinnerStartHour int
	OrderCutoffHour int
	VendorKey       string
	VendorName      string
	Linker          VendorLinker
	Moves           []Move
}

// NewRescuer builds a Rescuer from DRM configuration with the template
// deep-link builder and the default moves.
func NewRescuer(cfg config.DRM) *Rescuer {
	return &Rescuer{
		DinnerStartHour: cfg.DinnerStartHour,
		OrderCutoffHour: cfg.OrderCutoffHour,
		VendorKey:       cfg.VendorKey,
		VendorName:      cfg.VendorName,
		Linker:          TemplateLinker{Template: cfg.DeepLinkTemplate},
		Moves:           DefaultMoves,
	}
}

// ShouldOrder reports whether reason and the local hour of now call for an
// order rescue rather than zero-cook.
func (r *Rescuer) ShouldOrder(reason Reason, now time.Time) bool {
	if !reason.HighStress() || r.VendorKey == "" {
		return false
	}
	hour := now.Hour()
	return hour >= r.DinnerStartHour && hour < r.OrderCutoffHour
}

// Select produces exactly one rescue action. Linker failures are returned
// to the caller unchanged in meaning.
func (r *Rescuer) Select(ctx context.Context, req Request) (Rescue, error) {
	out := Rescue{Reason: req.Reason, Confidence: 1.0}
	hashFor := req.HashFor
	if hashFor == nil {
		hashFor = func(key string) string { return key }
	}

	if r.ShouldOrder(req.Reason, req.Now) {
		link, err := r.Linker.DeepLink(ctx, r.VendorKey, req.Household, req.DecisionEventID)
		if err != nil {
			return Rescue{}, ledger.Wrap(ledger.ErrCollaborator, "drm", "vendor deep link", r.VendorKey, err)
		}
		title := "Order from " + r.VendorName
		if strings.TrimSpace(r.VendorName) == "" {
			title = "Order dinner in"
		}
		out.Action = &action.Action{
			DecisionType:    ledger.TypeOrder,
			DecisionEventID: req.DecisionEventID,
			ContextHash:     hashFor("vendor:" + r.VendorKey),
			VendorKey:       r.VendorKey,
			DeepLinkURL:     link,
			Title:           title,
		}
		return out, nil
	}

	if len(r.Moves) == 0 {
		out.Exhausted = true
		return out, nil
	}
	move := r.Moves[moveIndex[req.Reason]%len(r.Moves)]
	out.Action = &action.Action{
		DecisionType:    ledger.TypeZeroCook,
		DecisionEventID: req.DecisionEventID,
		ContextHash:     hashFor("move:" + move.Key),
		Title:           move.Title,
		Steps:           append([]string(nil), move.Steps...),
	}
	return out, nil
}
