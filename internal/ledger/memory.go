package ledger

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. Each instance owns its state; nothing
// is shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	events  []DecisionEvent
	signals []TasteSignal
	scores  map[string]map[string]TasteMealScore
	drm     []DrmEvent
	newID   func() string
}

// NewMemoryStore returns an empty store that issues UUID event ids.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scores: make(map[string]map[string]TasteMealScore),
		newID:  uuid.NewString,
	}
}

// WithIDs replaces the event id generator, for deterministic tests.
func (m *MemoryStore) WithIDs(next func() string) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newID = next
	return m
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

// GenerateEventID implements DecisionLog.
func (m *MemoryStore) GenerateEventID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newID()
}

// PersistDecisionEvent implements DecisionLog.
func (m *MemoryStore) PersistDecisionEvent(_ context.Context, event DecisionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertEventLocked("persist decision", event)
}

func (m *MemoryStore) insertEventLocked(op string, event DecisionEvent) error {
	if err := validateEvent(op, event); err != nil {
		return err
	}
	for _, existing := range m.events {
		if existing.ID == event.ID {
			return Wrap(ErrConflict, "ledger", op, "event "+event.ID+" already exists", nil)
		}
		if !event.IsRoot() && existing.ParentID == event.ParentID &&
			existing.UserAction == event.UserAction && existing.Undo == event.Undo {
			return Wrap(ErrConflict, "ledger", op, "feedback copy already recorded", nil)
		}
	}
	if !event.IsRoot() && m.findLocked(event.ParentID) == nil {
		return Wrap(ErrNotFound, "ledger", op, "parent "+event.ParentID+" not found", nil)
	}
	event.Payload = slices.Clone(event.Payload)
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryStore) findLocked(id string) *DecisionEvent {
	for i := range m.events {
		if m.events[i].ID == id {
			return &m.events[i]
		}
	}
	return nil
}

// RecentDecisions implements DecisionLog.
func (m *MemoryStore) RecentDecisions(_ context.Context, household string, limit int) ([]DecisionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []DecisionEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Household == household {
			matched = append(matched, m.events[i])
		}
	}
	matched = SortRecentFirst(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// DecisionByID implements DecisionReader.
func (m *MemoryStore) DecisionByID(_ context.Context, id string) (*DecisionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev := m.findLocked(id); ev != nil {
		copied := *ev
		return &copied, nil
	}
	return nil, nil
}

// Copies implements DecisionReader.
func (m *MemoryStore) Copies(_ context.Context, rootID string) ([]DecisionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DecisionEvent
	for _, ev := range m.events {
		if ev.ParentID == rootID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// UnresolvedBefore implements DecisionReader.
func (m *MemoryStore) UnresolvedBefore(_ context.Context, household string, cutoff time.Time) ([]DecisionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DecisionEvent
	for _, ev := range m.events {
		if ev.Household != household || !ev.IsRoot() || ev.UserAction != ActionPending || !ev.DecidedAt.Before(cutoff) {
			continue
		}
		if CurrentStatus(ev, m.events).Action == ActionPending {
			out = append(out, ev)
		}
	}
	return out, nil
}

// AppendTasteSignal implements TasteSignalAppender.
func (m *MemoryStore) AppendTasteSignal(_ context.Context, signal TasteSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendSignalLocked(signal)
}

func (m *MemoryStore) appendSignalLocked(signal TasteSignal) error {
	if err := validateSignal("append taste signal", signal); err != nil {
		return err
	}
	for _, existing := range m.signals {
		if existing.ID == signal.ID || existing.DecisionEventID == signal.DecisionEventID {
			return Wrap(ErrConflict, "ledger", "append taste signal", "signal already recorded", nil)
		}
	}
	m.signals = append(m.signals, signal)
	return nil
}

// TasteSignals implements TasteSignalReader.
func (m *MemoryStore) TasteSignals(_ context.Context, household string) ([]TasteSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TasteSignal
	for _, sig := range m.signals {
		if sig.Household == household {
			out = append(out, sig)
		}
	}
	return out, nil
}

// TasteScores implements TasteCache.
func (m *MemoryStore) TasteScores(_ context.Context, household string) (map[string]TasteMealScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]TasteMealScore, len(m.scores[household]))
	for id, score := range m.scores[household] {
		out[id] = score
	}
	return out, nil
}

// ReplaceTasteScores implements TasteCache.
func (m *MemoryStore) ReplaceTasteScores(_ context.Context, household string, scores []TasteMealScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fresh := make(map[string]TasteMealScore, len(scores))
	for _, score := range scores {
		fresh[score.MealID] = score
	}
	m.scores[household] = fresh
	return nil
}

// RecordFeedback implements FeedbackRecorder.
func (m *MemoryStore) RecordFeedback(_ context.Context, feedback DecisionEvent, signal *TasteSignal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if HasCopy(m.events, feedback.ParentID, feedback.UserAction, feedback.Undo) {
		return false, nil
	}
	if feedback.IsRoot() {
		return false, Wrap(ErrValidation, "ledger", "record feedback", "feedback must reference a decision", nil)
	}
	if signal != nil {
		if err := validateSignal("record feedback", *signal); err != nil {
			return false, err
		}
	}
	if err := m.insertEventLocked("record feedback", feedback); err != nil {
		return false, err
	}
	if signal == nil {
		return true, nil
	}
	if err := m.appendSignalLocked(*signal); err != nil {
		m.events = m.events[:len(m.events)-1]
		return false, err
	}
	if signal.MealID != "" {
		household := m.scores[signal.Household]
		if household == nil {
			household = make(map[string]TasteMealScore)
			m.scores[signal.Household] = household
		}
		household[signal.MealID] = ApplySignal(household[signal.MealID], *signal)
	}
	return true, nil
}

// RecordRescue implements RescueRecorder.
func (m *MemoryStore) RecordRescue(_ context.Context, event DecisionEvent, drm DrmEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.UserAction != ActionDRMTriggered {
		return Wrap(ErrValidation, "ledger", "record rescue", "rescue decisions must be drm_triggered", nil)
	}
	if err := m.insertEventLocked("record rescue", event); err != nil {
		return err
	}
	drm.RescuePayload = slices.Clone(drm.RescuePayload)
	m.drm = append(m.drm, drm)
	return nil
}

// RecordExhausted implements RescueRecorder.
func (m *MemoryStore) RecordExhausted(_ context.Context, drm DrmEvent) error {
	if err := validateExhausted(drm); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drm = append(m.drm, drm)
	return nil
}

// DrmEvents implements RescueRecorder.
func (m *MemoryStore) DrmEvents(_ context.Context, household string, limit int) ([]DrmEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DrmEvent
	for i := len(m.drm) - 1; i >= 0; i-- {
		if m.drm[i].Household == household {
			out = append(out, m.drm[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
