package ledger

import (
	"context"
	"time"
)

// DecisionLog is the ledger surface the decision core depends on.
type DecisionLog interface {
	GenerateEventID() string
	PersistDecisionEvent(ctx context.Context, event DecisionEvent) error
	// RecentDecisions returns a household's events, roots and copies alike,
	// most recent first. limit <= 0 returns everything.
	RecentDecisions(ctx context.Context, household string, limit int) ([]DecisionEvent, error)
}

// DecisionReader looks up individual decisions and their feedback copies.
type DecisionReader interface {
	DecisionByID(ctx context.Context, id string) (*DecisionEvent, error)
	Copies(ctx context.Context, rootID string) ([]DecisionEvent, error)
	// UnresolvedBefore lists root decisions still pending that were decided
	// before cutoff.
	UnresolvedBefore(ctx context.Context, household string, cutoff time.Time) ([]DecisionEvent, error)
}

// TasteSignalAppender is the only write path for taste signals. There is no
// update or delete.
type TasteSignalAppender interface {
	AppendTasteSignal(ctx context.Context, signal TasteSignal) error
}

// TasteSignalReader reads the signal log back for recomputation.
type TasteSignalReader interface {
	TasteSignals(ctx context.Context, household string) ([]TasteSignal, error)
}

// TasteCache is the derived per-meal score cache.
type TasteCache interface {
	TasteScores(ctx context.Context, household string) (map[string]TasteMealScore, error)
	ReplaceTasteScores(ctx context.Context, household string, scores []TasteMealScore) error
}

// FeedbackRecorder atomically stores a feedback copy, its taste signal and
// the cache update. It reports false without writing anything when an
// equivalent copy already exists.
type FeedbackRecorder interface {
	RecordFeedback(ctx context.Context, feedback DecisionEvent, signal *TasteSignal) (bool, error)
}

// RescueRecorder atomically stores a rescue decision and its DRM event.
type RescueRecorder interface {
	RecordRescue(ctx context.Context, event DecisionEvent, drm DrmEvent) error
	// RecordExhausted stores an override that produced no rescue. There is
	// no decision row.
	RecordExhausted(ctx context.Context, drm DrmEvent) error
	DrmEvents(ctx context.Context, household string, limit int) ([]DrmEvent, error)
}

// Store is the full ledger.
type Store interface {
	DecisionLog
	DecisionReader
	TasteSignalAppender
	TasteSignalReader
	TasteCache
	FeedbackRecorder
	RescueRecorder
	Close() error
}
