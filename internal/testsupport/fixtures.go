package testsupport

import (
	"context"
	"strings"
	"sync"
	"time"

	"tonight/internal/catalog"
)

// Meal builds an active catalog meal whose id is derived from key. Ingredient
// names prefixed with "staple:" are marked as pantry staples.
func Meal(key string, minutes int, ingredients ...string) catalog.Meal {
	meal := catalog.Meal{
		ID:           "meal-" + key,
		CanonicalKey: key,
		Name:         key,
		Instructions: "Prepare " + key,
		EstMinutes:   minutes,
		Active:       true,
		CookType:     "stovetop",
	}
	for _, name := range ingredients {
		if staple, ok := strings.CutPrefix(name, "staple:"); ok {
			meal.Ingredients = append(meal.Ingredients, catalog.Ingredient{Name: staple, PantryStaple: true})
			continue
		}
		meal.Ingredients = append(meal.Ingredients, catalog.Ingredient{Name: name})
	}
	return meal
}

// Item builds an inventory item observed at seen.
func Item(household, name string, confidence float64, seen time.Time) catalog.InventoryItem {
	return catalog.InventoryItem{
		ID:         "item-" + name,
		Household:  household,
		Name:       name,
		Confidence: confidence,
		LastSeenAt: seen,
		Source:     "receipt",
	}
}

// Catalog is an in-memory catalog.Reader that also records consumption.
type Catalog struct {
	mu       sync.Mutex
	Meals    []catalog.Meal
	Items    map[string][]catalog.InventoryItem
	Err      error
	Consumed [][]string
}

// NewCatalog returns a Catalog holding meals and no inventory.
func NewCatalog(meals ...catalog.Meal) *Catalog {
	return &Catalog{Meals: meals, Items: map[string][]catalog.InventoryItem{}}
}

// WithInventory replaces the household's inventory.
func (c *Catalog) WithInventory(household string, items ...catalog.InventoryItem) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Items[household] = items
	return c
}

// ActiveMeals implements catalog.Reader.
func (c *Catalog) ActiveMeals(context.Context) ([]catalog.Meal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	var out []catalog.Meal
	for _, meal := range c.Meals {
		if meal.Active {
			out = append(out, meal)
		}
	}
	return out, nil
}

// Inventory implements catalog.Reader.
func (c *Catalog) Inventory(_ context.Context, household string) ([]catalog.InventoryItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]catalog.InventoryItem(nil), c.Items[household]...), nil
}

// MealByID looks a meal up by id.
func (c *Catalog) MealByID(_ context.Context, id string) (*catalog.Meal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, meal := range c.Meals {
		if meal.ID == id {
			m := meal
			return &m, nil
		}
	}
	return nil, nil
}

// ConsumeInventory records the consumed item ids.
func (c *Catalog) ConsumeInventory(_ context.Context, _ string, itemIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Consumed = append(c.Consumed, append([]string(nil), itemIDs...))
	return nil
}

// ConsumeCalls reports how many times consumption was recorded.
func (c *Catalog) ConsumeCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Consumed)
}
