package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"tonight/internal/config"
)

const lockRetryDelay = 25 * time.Millisecond

// SQLiteStore is the durable Store. Writes hold an advisory file lock so
// concurrent CLI invocations for one household serialize.
type SQLiteStore struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// OpenSQLite opens the ledger database under the configured data directory.
func OpenSQLite(cfg *config.Config) (*SQLiteStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenSQLitePath(context.Background(), cfg.LedgerPath(), cfg.LockPath())
}

// OpenSQLitePath opens a ledger database and lock file at explicit paths.
func OpenSQLitePath(ctx context.Context, dbPath, lockPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: dbPath, lock: flock.New(lockPath)}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database and releases the lock if held.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) withWriteLock(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return Wrap(ErrCollaborator, "ledger", op, "acquire lock", err)
	}
	if !locked {
		return Wrap(ErrCollaborator, "ledger", op, "lock not acquired", nil)
	}
	defer func() { _ = s.lock.Unlock() }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Wrap(ErrCollaborator, "ledger", op, "begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return Wrap(ErrCollaborator, "ledger", op, "commit", err)
	}
	return nil
}

// GenerateEventID implements DecisionLog.
func (s *SQLiteStore) GenerateEventID() string {
	return uuid.NewString()
}

// PersistDecisionEvent implements DecisionLog.
func (s *SQLiteStore) PersistDecisionEvent(ctx context.Context, event DecisionEvent) error {
	if err := validateEvent("persist decision", event); err != nil {
		return err
	}
	return s.withWriteLock(ctx, "persist decision", func(tx *sql.Tx) error {
		return insertEvent(ctx, tx, "persist decision", event)
	})
}

func insertEvent(ctx context.Context, tx *sql.Tx, op string, e DecisionEvent) error {
	payload := string(e.Payload)
	if payload == "" {
		payload = "{}"
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO decision_events (id, household, decided_at, decided_at_ms, decision_type, meal_id, vendor_key,
             context_hash, payload, user_action, parent_id, undo)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Household, formatTime(e.DecidedAt), e.DecidedAt.UnixMilli(), string(e.Type),
		nullableString(e.MealID), nullableString(e.VendorKey), e.ContextHash, payload,
		string(e.UserAction), nullableString(e.ParentID), boolToInt(e.Undo),
	)
	if err != nil {
		return classifyWriteError(op, err)
	}
	return nil
}

// RecentDecisions implements DecisionLog.
func (s *SQLiteStore) RecentDecisions(ctx context.Context, household string, limit int) ([]DecisionEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM decision_events WHERE household = ?
              ORDER BY decided_at_ms DESC, seq DESC`
	args := []any{household}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryEvents(ctx, "recent decisions", query, args...)
}

// DecisionByID implements DecisionReader.
func (s *SQLiteStore) DecisionByID(ctx context.Context, id string) (*DecisionEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM decision_events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Wrap(ErrCollaborator, "ledger", "get decision", id, err)
	}
	return &ev, nil
}

// Copies implements DecisionReader.
func (s *SQLiteStore) Copies(ctx context.Context, rootID string) ([]DecisionEvent, error) {
	return s.queryEvents(ctx, "list copies",
		`SELECT `+eventColumns+` FROM decision_events WHERE parent_id = ? ORDER BY decided_at_ms, seq`, rootID)
}

// UnresolvedBefore implements DecisionReader.
func (s *SQLiteStore) UnresolvedBefore(ctx context.Context, household string, cutoff time.Time) ([]DecisionEvent, error) {
	return s.queryEvents(ctx, "list unresolved",
		`SELECT `+eventColumns+` FROM decision_events d
         WHERE d.household = ? AND d.parent_id IS NULL AND d.user_action = 'pending' AND d.decided_at_ms < ?
           AND NOT EXISTS (SELECT 1 FROM decision_events c WHERE c.parent_id = d.id)
         ORDER BY d.decided_at_ms, d.seq`,
		household, cutoff.UnixMilli())
}

func (s *SQLiteStore) queryEvents(ctx context.Context, op, query string, args ...any) ([]DecisionEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Wrap(ErrCollaborator, "ledger", op, "", err)
	}
	defer rows.Close()
	var out []DecisionEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, Wrap(ErrCollaborator, "ledger", op, "scan", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, Wrap(ErrCollaborator, "ledger", op, "", err)
	}
	return out, nil
}

// AppendTasteSignal implements TasteSignalAppender.
func (s *SQLiteStore) AppendTasteSignal(ctx context.Context, signal TasteSignal) error {
	if err := validateSignal("append taste signal", signal); err != nil {
		return err
	}
	return s.withWriteLock(ctx, "append taste signal", func(tx *sql.Tx) error {
		return insertSignal(ctx, tx, signal)
	})
}

func insertSignal(ctx context.Context, tx *sql.Tx, signal TasteSignal) error {
	features, err := json.Marshal(signal.Features)
	if err != nil {
		return Wrap(ErrValidation, "ledger", "append taste signal", "encode features", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO taste_signals (id, decision_event_id, household, meal_id, features_json, weight, created_at, created_at_ms)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		signal.ID, signal.DecisionEventID, signal.Household, signal.MealID, string(features), signal.Weight,
		formatTime(signal.CreatedAt), signal.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return classifyWriteError("append taste signal", err)
	}
	return nil
}

// TasteSignals implements TasteSignalReader.
func (s *SQLiteStore) TasteSignals(ctx context.Context, household string) ([]TasteSignal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, decision_event_id, household, meal_id, features_json, weight, created_at
         FROM taste_signals WHERE household = ? ORDER BY created_at_ms, rowid`, household)
	if err != nil {
		return nil, Wrap(ErrCollaborator, "ledger", "list taste signals", "", err)
	}
	defer rows.Close()
	var out []TasteSignal
	for rows.Next() {
		var (
			sig      TasteSignal
			features string
			created  string
		)
		if err := rows.Scan(&sig.ID, &sig.DecisionEventID, &sig.Household, &sig.MealID, &features, &sig.Weight, &created); err != nil {
			return nil, Wrap(ErrCollaborator, "ledger", "list taste signals", "scan", err)
		}
		if features != "" {
			if err := json.Unmarshal([]byte(features), &sig.Features); err != nil {
				return nil, Wrap(ErrCollaborator, "ledger", "list taste signals", "decode features", err)
			}
		}
		sig.CreatedAt = parseTime(created)
		out = append(out, sig)
	}
	return out, rows.Err()
}

// TasteScores implements TasteCache.
func (s *SQLiteStore) TasteScores(ctx context.Context, household string) (map[string]TasteMealScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT household, meal_id, score, approvals, rejections, last_seen_at
         FROM taste_meal_scores WHERE household = ?`, household)
	if err != nil {
		return nil, Wrap(ErrCollaborator, "ledger", "taste scores", "", err)
	}
	defer rows.Close()
	out := make(map[string]TasteMealScore)
	for rows.Next() {
		var (
			score TasteMealScore
			seen  string
		)
		if err := rows.Scan(&score.Household, &score.MealID, &score.Score, &score.Approvals, &score.Rejections, &seen); err != nil {
			return nil, Wrap(ErrCollaborator, "ledger", "taste scores", "scan", err)
		}
		score.LastSeenAt = parseTime(seen)
		out[score.MealID] = score
	}
	return out, rows.Err()
}

// ReplaceTasteScores implements TasteCache.
func (s *SQLiteStore) ReplaceTasteScores(ctx context.Context, household string, scores []TasteMealScore) error {
	return s.withWriteLock(ctx, "replace taste scores", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM taste_meal_scores WHERE household = ?`, household); err != nil {
			return Wrap(ErrCollaborator, "ledger", "replace taste scores", "clear", err)
		}
		for _, score := range scores {
			if err := upsertScore(ctx, tx, score); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertScore(ctx context.Context, tx *sql.Tx, score TasteMealScore) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO taste_meal_scores (household, meal_id, score, approvals, rejections, last_seen_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(household, meal_id) DO UPDATE SET
             score = excluded.score, approvals = excluded.approvals,
             rejections = excluded.rejections, last_seen_at = excluded.last_seen_at`,
		score.Household, score.MealID, score.Score, score.Approvals, score.Rejections, formatTime(score.LastSeenAt),
	)
	if err != nil {
		return Wrap(ErrCollaborator, "ledger", "upsert taste score", score.MealID, err)
	}
	return nil
}

// RecordFeedback implements FeedbackRecorder.
func (s *SQLiteStore) RecordFeedback(ctx context.Context, feedback DecisionEvent, signal *TasteSignal) (bool, error) {
	if feedback.IsRoot() {
		return false, Wrap(ErrValidation, "ledger", "record feedback", "feedback must reference a decision", nil)
	}
	if err := validateEvent("record feedback", feedback); err != nil {
		return false, err
	}
	if signal != nil {
		if err := validateSignal("record feedback", *signal); err != nil {
			return false, err
		}
	}

	created := false
	err := s.withWriteLock(ctx, "record feedback", func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM decision_events WHERE parent_id = ? AND user_action = ? AND undo = ?`,
			feedback.ParentID, string(feedback.UserAction), boolToInt(feedback.Undo),
		).Scan(&exists); err != nil {
			return Wrap(ErrCollaborator, "ledger", "record feedback", "check existing copy", err)
		}
		if exists > 0 {
			return nil
		}
		var parents int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM decision_events WHERE id = ?`, feedback.ParentID).Scan(&parents); err != nil {
			return Wrap(ErrCollaborator, "ledger", "record feedback", "check parent", err)
		}
		if parents == 0 {
			return Wrap(ErrNotFound, "ledger", "record feedback", "parent "+feedback.ParentID+" not found", nil)
		}
		if err := insertEvent(ctx, tx, "record feedback", feedback); err != nil {
			if errors.Is(err, ErrConflict) {
				return nil
			}
			return err
		}
		created = true
		if signal == nil {
			return nil
		}
		if err := insertSignal(ctx, tx, *signal); err != nil {
			return err
		}
		if signal.MealID == "" {
			return nil
		}
		current, err := scoreInTx(ctx, tx, signal.Household, signal.MealID)
		if err != nil {
			return err
		}
		return upsertScore(ctx, tx, ApplySignal(current, *signal))
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func scoreInTx(ctx context.Context, tx *sql.Tx, household, mealID string) (TasteMealScore, error) {
	var (
		score TasteMealScore
		seen  string
	)
	err := tx.QueryRowContext(ctx,
		`SELECT household, meal_id, score, approvals, rejections, last_seen_at
         FROM taste_meal_scores WHERE household = ? AND meal_id = ?`, household, mealID,
	).Scan(&score.Household, &score.MealID, &score.Score, &score.Approvals, &score.Rejections, &seen)
	if errors.Is(err, sql.ErrNoRows) {
		return TasteMealScore{Household: household, MealID: mealID}, nil
	}
	if err != nil {
		return TasteMealScore{}, Wrap(ErrCollaborator, "ledger", "read taste score", mealID, err)
	}
	score.LastSeenAt = parseTime(seen)
	return score, nil
}

// RecordRescue implements RescueRecorder.
func (s *SQLiteStore) RecordRescue(ctx context.Context, event DecisionEvent, drm DrmEvent) error {
	if event.UserAction != ActionDRMTriggered {
		return Wrap(ErrValidation, "ledger", "record rescue", "rescue decisions must be drm_triggered", nil)
	}
	if err := validateEvent("record rescue", event); err != nil {
		return err
	}
	return s.withWriteLock(ctx, "record rescue", func(tx *sql.Tx) error {
		if err := insertEvent(ctx, tx, "record rescue", event); err != nil {
			return err
		}
		return insertDrmEvent(ctx, tx, "record rescue", drm)
	})
}

// RecordExhausted implements RescueRecorder.
func (s *SQLiteStore) RecordExhausted(ctx context.Context, drm DrmEvent) error {
	if err := validateExhausted(drm); err != nil {
		return err
	}
	return s.withWriteLock(ctx, "record exhausted rescue", func(tx *sql.Tx) error {
		return insertDrmEvent(ctx, tx, "record exhausted rescue", drm)
	})
}

func insertDrmEvent(ctx context.Context, tx *sql.Tx, op string, drm DrmEvent) error {
	var payload any
	if len(drm.RescuePayload) > 0 {
		payload = string(drm.RescuePayload)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO drm_events (id, household, decision_event_id, triggered_at, triggered_at_ms, trigger_type,
                 trigger_reason, rescue_type, rescue_payload, exhausted)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		drm.ID, drm.Household, nullableString(drm.DecisionEventID), formatTime(drm.TriggeredAt),
		drm.TriggeredAt.UnixMilli(), drm.TriggerType, drm.TriggerReason, drm.RescueType, payload,
		boolToInt(drm.Exhausted),
	)
	if err != nil {
		return classifyWriteError(op, err)
	}
	return nil
}

// DrmEvents implements RescueRecorder.
func (s *SQLiteStore) DrmEvents(ctx context.Context, household string, limit int) ([]DrmEvent, error) {
	query := `SELECT id, household, decision_event_id, triggered_at, trigger_type, trigger_reason, rescue_type,
                     rescue_payload, exhausted
              FROM drm_events WHERE household = ? ORDER BY triggered_at_ms DESC, rowid DESC`
	args := []any{household}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Wrap(ErrCollaborator, "ledger", "list drm events", "", err)
	}
	defer rows.Close()
	var out []DrmEvent
	for rows.Next() {
		var (
			ev        DrmEvent
			decision  sql.NullString
			triggered string
			payload   sql.NullString
			exhausted int
		)
		if err := rows.Scan(&ev.ID, &ev.Household, &decision, &triggered, &ev.TriggerType, &ev.TriggerReason,
			&ev.RescueType, &payload, &exhausted); err != nil {
			return nil, Wrap(ErrCollaborator, "ledger", "list drm events", "scan", err)
		}
		ev.DecisionEventID = decision.String
		ev.TriggeredAt = parseTime(triggered)
		if payload.Valid {
			ev.RescuePayload = json.RawMessage(payload.String)
		}
		ev.Exhausted = exhausted != 0
		out = append(out, ev)
	}
	return out, rows.Err()
}

func classifyWriteError(op string, err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return Wrap(ErrConflict, "ledger", op, "duplicate row", err)
		case sqlite3.SQLITE_CONSTRAINT_TRIGGER:
			return Wrap(ErrAppendOnly, "ledger", op, "", err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return Wrap(ErrNotFound, "ledger", op, "referenced row missing", err)
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "append-only"):
		return Wrap(ErrAppendOnly, "ledger", op, "", err)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return Wrap(ErrConflict, "ledger", op, "duplicate row", err)
	}
	return Wrap(ErrCollaborator, "ledger", op, "", err)
}
