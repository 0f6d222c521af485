package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const mealColumns = "id, canonical_key, name, instructions, est_minutes, active, cook_type, difficulty, mode, tags_json"

func scanMeal(scanner interface{ Scan(dest ...any) error }) (Meal, error) {
	var (
		meal     Meal
		active   int
		tagsJSON sql.NullString
	)
	if err := scanner.Scan(
		&meal.ID,
		&meal.CanonicalKey,
		&meal.Name,
		&meal.Instructions,
		&meal.EstMinutes,
		&active,
		&meal.CookType,
		&meal.Difficulty,
		&meal.Mode,
		&tagsJSON,
	); err != nil {
		return Meal{}, err
	}
	meal.Active = active != 0
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &meal.Tags); err != nil {
			return Meal{}, fmt.Errorf("decode tags for %s: %w", meal.CanonicalKey, err)
		}
	}
	return meal, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	return time.Time{}
}
