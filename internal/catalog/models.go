package catalog

import (
	"context"
	"time"
)

// Meal is an immutable catalog entry.
type Meal struct {
	ID           string
	CanonicalKey string
	Name         string
	Instructions string
	EstMinutes   int
	Active       bool
	CookType     string
	Difficulty   string
	Mode         string
	Tags         []string
	Ingredients  []Ingredient
}

// Ingredient belongs to exactly one meal. Pantry staples are always
// considered available.
type Ingredient struct {
	Name         string
	PantryStaple bool
}

// InventoryItem is a household-scoped estimate of one pantry item.
type InventoryItem struct {
	ID         string
	Household  string
	Name       string
	Confidence float64
	// RemainingQty is nil when no quantity estimate exists.
	RemainingQty *float64
	LastSeenAt   time.Time
	Source       string
}

// Reader is the read-only catalog surface consumed by the arbiter.
type Reader interface {
	ActiveMeals(ctx context.Context) ([]Meal, error)
	Inventory(ctx context.Context, household string) ([]InventoryItem, error)
}

// Quantity is a convenience for building InventoryItem.RemainingQty.
func Quantity(v float64) *float64 {
	return &v
}

// ByID indexes meals by identifier.
func ByID(meals []Meal) map[string]Meal {
	out := make(map[string]Meal, len(meals))
	for _, meal := range meals {
		out[meal.ID] = meal
	}
	return out
}
