package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tonight/internal/config"
)

// Store persists the meal catalog and household inventory in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database under the configured
// data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(context.Background(), cfg.CatalogPath())
}

// OpenPath opens a catalog database at an explicit location.
func OpenPath(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
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

	store := &Store{db: db, path: path}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// UpsertMeal inserts a meal or replaces the one sharing its canonical key.
// The existing meal ID is kept so decision history stays attached.
func (s *Store) UpsertMeal(ctx context.Context, meal Meal) (Meal, error) {
	meal.CanonicalKey = strings.TrimSpace(meal.CanonicalKey)
	if meal.CanonicalKey == "" {
		return Meal{}, errors.New("meal canonical key is required")
	}
	if strings.TrimSpace(meal.Name) == "" {
		return Meal{}, fmt.Errorf("meal %s: name is required", meal.CanonicalKey)
	}
	tags := meal.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return Meal{}, fmt.Errorf("marshal tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Meal{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM meals WHERE canonical_key = ?`, meal.CanonicalKey).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if meal.ID == "" {
			meal.ID = uuid.NewString()
		}
	case err != nil:
		return Meal{}, fmt.Errorf("lookup meal: %w", err)
	default:
		meal.ID = existingID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO meals (id, canonical_key, name, instructions, est_minutes, active, cook_type, difficulty, mode, tags_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             name = excluded.name, instructions = excluded.instructions, est_minutes = excluded.est_minutes,
             active = excluded.active, cook_type = excluded.cook_type, difficulty = excluded.difficulty,
             mode = excluded.mode, tags_json = excluded.tags_json`,
		meal.ID, meal.CanonicalKey, meal.Name, meal.Instructions, meal.EstMinutes, boolToInt(meal.Active),
		meal.CookType, meal.Difficulty, meal.Mode, string(tagsJSON),
	)
	if err != nil {
		return Meal{}, fmt.Errorf("upsert meal %s: %w", meal.CanonicalKey, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ingredients WHERE meal_id = ?`, meal.ID); err != nil {
		return Meal{}, fmt.Errorf("clear ingredients: %w", err)
	}
	for i, ing := range meal.Ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			return Meal{}, fmt.Errorf("meal %s: ingredient %d has no name", meal.CanonicalKey, i+1)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ingredients (meal_id, position, name, pantry_staple) VALUES (?, ?, ?, ?)`,
			meal.ID, i, name, boolToInt(ing.PantryStaple),
		); err != nil {
			return Meal{}, fmt.Errorf("insert ingredient: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Meal{}, fmt.Errorf("commit meal: %w", err)
	}
	return meal, nil
}

// ActiveMeals returns every active meal with its ingredients, ordered by canonical key.
func (s *Store) ActiveMeals(ctx context.Context) ([]Meal, error) {
	return s.listMeals(ctx, true)
}

// AllMeals returns every meal including inactive ones.
func (s *Store) AllMeals(ctx context.Context) ([]Meal, error) {
	return s.listMeals(ctx, false)
}

func (s *Store) listMeals(ctx context.Context, activeOnly bool) ([]Meal, error) {
	query := `SELECT ` + mealColumns + ` FROM meals`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY canonical_key`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	defer rows.Close()

	var meals []Meal
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, meal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachIngredients(ctx, meals); err != nil {
		return nil, err
	}
	return meals, nil
}

// MealByID fetches one meal. Returns nil when the meal is unknown.
func (s *Store) MealByID(ctx context.Context, id string) (*Meal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mealColumns+` FROM meals WHERE id = ?`, id)
	meal, err := scanMeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meal: %w", err)
	}
	meals := []Meal{meal}
	if err := s.attachIngredients(ctx, meals); err != nil {
		return nil, err
	}
	return &meals[0], nil
}

// SetActive toggles whether a meal is offered by the arbiter.
func (s *Store) SetActive(ctx context.Context, canonicalKey string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE meals SET active = ? WHERE canonical_key = ?`, boolToInt(active), canonicalKey)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("meal %q not found", canonicalKey)
	}
	return nil
}

func (s *Store) attachIngredients(ctx context.Context, meals []Meal) error {
	if len(meals) == 0 {
		return nil
	}
	index := make(map[string]int, len(meals))
	for i := range meals {
		index[meals[i].ID] = i
	}
	rows, err := s.db.QueryContext(ctx, `SELECT meal_id, name, pantry_staple FROM ingredients ORDER BY meal_id, position`)
	if err != nil {
		return fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			mealID string
			name   string
			staple int
		)
		if err := rows.Scan(&mealID, &name, &staple); err != nil {
			return fmt.Errorf("scan ingredient: %w", err)
		}
		if i, ok := index[mealID]; ok {
			meals[i].Ingredients = append(meals[i].Ingredients, Ingredient{Name: name, PantryStaple: staple != 0})
		}
	}
	return rows.Err()
}

// UpsertInventoryItem records an observation for a household pantry item,
// replacing the previous estimate for the same name.
func (s *Store) UpsertInventoryItem(ctx context.Context, item InventoryItem) (InventoryItem, error) {
	item.Household = strings.TrimSpace(item.Household)
	item.Name = strings.TrimSpace(item.Name)
	if item.Household == "" || item.Name == "" {
		return InventoryItem{}, errors.New("inventory item requires household and name")
	}
	if item.Confidence < 0 || item.Confidence > 1 || math.IsNaN(item.Confidence) {
		return InventoryItem{}, fmt.Errorf("inventory item %q: confidence %v out of range", item.Name, item.Confidence)
	}
	if item.LastSeenAt.IsZero() {
		return InventoryItem{}, fmt.Errorf("inventory item %q: last seen time is required", item.Name)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inventory_items (id, household, name, confidence, remaining_qty, last_seen_at, source)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(household, name) DO UPDATE SET
             confidence = excluded.confidence, remaining_qty = excluded.remaining_qty,
             last_seen_at = excluded.last_seen_at, source = excluded.source`,
		item.ID, item.Household, item.Name, item.Confidence, nullableFloat(item.RemainingQty),
		item.LastSeenAt.UTC().Format(time.RFC3339Nano), item.Source,
	)
	if err != nil {
		return InventoryItem{}, fmt.Errorf("upsert inventory item: %w", err)
	}
	return item, nil
}

// Inventory returns a household's pantry estimates ordered by name.
func (s *Store) Inventory(ctx context.Context, household string) ([]InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, household, name, confidence, remaining_qty, last_seen_at, source
         FROM inventory_items WHERE household = ? ORDER BY name`, household)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var items []InventoryItem
	for rows.Next() {
		var (
			item      InventoryItem
			remaining sql.NullFloat64
			seenRaw   string
		)
		if err := rows.Scan(&item.ID, &item.Household, &item.Name, &item.Confidence, &remaining, &seenRaw, &item.Source); err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		if remaining.Valid {
			item.RemainingQty = Quantity(remaining.Float64)
		}
		item.LastSeenAt = parseTime(seenRaw)
		items = append(items, item)
	}
	return items, rows.Err()
}

// ConsumeInventory records that a meal used the given pantry items: a known
// remaining quantity drops by one unit (never below zero), otherwise the
// confidence halves.
func (s *Store) ConsumeInventory(ctx context.Context, household string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range itemIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory_items SET
                 remaining_qty = CASE WHEN remaining_qty IS NULL THEN NULL ELSE MAX(remaining_qty - 1, 0) END,
                 confidence = CASE WHEN remaining_qty IS NULL THEN confidence * 0.5 ELSE confidence END
             WHERE id = ? AND household = ?`,
			id, household,
		); err != nil {
			return fmt.Errorf("consume inventory item %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// CountActiveMeals reports how many meals the arbiter can choose from.
func (s *Store) CountActiveMeals(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM meals WHERE active = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count meals: %w", err)
	}
	return n, nil
}
