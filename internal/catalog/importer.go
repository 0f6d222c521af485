package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"tonight/internal/textutil"
)

type mealFile struct {
	Meals []mealRecord `toml:"meals" yaml:"meals"`
}

type mealRecord struct {
	Key          string             `toml:"key" yaml:"key"`
	Name         string             `toml:"name" yaml:"name"`
	Instructions string             `toml:"instructions" yaml:"instructions"`
	Steps        []string           `toml:"steps" yaml:"steps"`
	EstMinutes   int                `toml:"est_minutes" yaml:"est_minutes"`
	Active       *bool              `toml:"active" yaml:"active"`
	CookType     string             `toml:"cook_type" yaml:"cook_type"`
	Difficulty   string             `toml:"difficulty" yaml:"difficulty"`
	Mode         string             `toml:"mode" yaml:"mode"`
	Tags         []string           `toml:"tags" yaml:"tags"`
	Ingredients  []ingredientRecord `toml:"ingredients" yaml:"ingredients"`
}

type ingredientRecord struct {
	Name   string `toml:"name" yaml:"name"`
	Staple bool   `toml:"staple" yaml:"staple"`
}

type inventoryFile struct {
	Items []inventoryRecord `toml:"items" yaml:"items"`
}

type inventoryRecord struct {
	Name       string    `toml:"name" yaml:"name"`
	Confidence *float64  `toml:"confidence" yaml:"confidence"`
	Remaining  *float64  `toml:"remaining" yaml:"remaining"`
	LastSeen   time.Time `toml:"last_seen" yaml:"last_seen"`
	Source     string    `toml:"source" yaml:"source"`
}

// ParseMeals decodes a meal catalog file. The format follows the file
// extension: .toml, or .yaml/.yml.
func ParseMeals(path string) ([]Meal, error) {
	var file mealFile
	if err := decodeFile(path, &file); err != nil {
		return nil, err
	}
	meals := make([]Meal, 0, len(file.Meals))
	for i, rec := range file.Meals {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: meal %d has no name", path, i+1)
		}
		key := strings.TrimSpace(rec.Key)
		if key == "" {
			key = textutil.Slug(name)
		}
		instructions := strings.TrimSpace(rec.Instructions)
		if instructions == "" && len(rec.Steps) > 0 {
			instructions = strings.Join(rec.Steps, "\n")
		}
		active := true
		if rec.Active != nil {
			active = *rec.Active
		}
		meal := Meal{
			CanonicalKey: key,
			Name:         name,
			Instructions: instructions,
			EstMinutes:   rec.EstMinutes,
			Active:       active,
			CookType:     rec.CookType,
			Difficulty:   rec.Difficulty,
			Mode:         rec.Mode,
			Tags:         rec.Tags,
		}
		for _, ing := range rec.Ingredients {
			meal.Ingredients = append(meal.Ingredients, Ingredient{Name: ing.Name, PantryStaple: ing.Staple})
		}
		meals = append(meals, meal)
	}
	return meals, nil
}

// ParseInventory decodes an inventory snapshot for a household. Items without
// a last-seen time are stamped with observedAt; missing confidence means 1.0.
func ParseInventory(path, household string, observedAt time.Time) ([]InventoryItem, error) {
	var file inventoryFile
	if err := decodeFile(path, &file); err != nil {
		return nil, err
	}
	items := make([]InventoryItem, 0, len(file.Items))
	for i, rec := range file.Items {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: item %d has no name", path, i+1)
		}
		confidence := 1.0
		if rec.Confidence != nil {
			confidence = *rec.Confidence
		}
		seen := rec.LastSeen
		if seen.IsZero() {
			seen = observedAt
		}
		source := strings.TrimSpace(rec.Source)
		if source == "" {
			source = "import"
		}
		items = append(items, InventoryItem{
			Household:    household,
			Name:         name,
			Confidence:   confidence,
			RemainingQty: rec.Remaining,
			LastSeenAt:   seen,
			Source:       source,
		})
	}
	return items, nil
}

// ImportMeals upserts every meal in the file and returns how many were written.
func (s *Store) ImportMeals(ctx context.Context, path string) (int, error) {
	meals, err := ParseMeals(path)
	if err != nil {
		return 0, err
	}
	for _, meal := range meals {
		if _, err := s.UpsertMeal(ctx, meal); err != nil {
			return 0, err
		}
	}
	return len(meals), nil
}

// ImportInventory upserts every item in the file for the household.
func (s *Store) ImportInventory(ctx context.Context, household, path string, observedAt time.Time) (int, error) {
	items, err := ParseInventory(path, household, observedAt)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if _, err := s.UpsertInventoryItem(ctx, item); err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

func decodeFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(target); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(target); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%s: unsupported file type (want .toml or .yaml)", path)
	}
	return nil
}
