package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tonight/internal/catalog"
	"tonight/internal/testsupport"
)

func TestUpsertMealPreservesIDByCanonicalKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	first, err := store.UpsertMeal(ctx, catalog.Meal{
		CanonicalKey: "pasta_marinara",
		Name:         "Pasta Marinara",
		EstMinutes:   20,
		Active:       true,
		Ingredients: []catalog.Ingredient{
			{Name: "pasta"},
			{Name: "olive oil", PantryStaple: true},
		},
	})
	if err != nil {
		t.Fatalf("UpsertMeal failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected meal ID to be assigned")
	}

	second, err := store.UpsertMeal(ctx, catalog.Meal{
		CanonicalKey: "pasta_marinara",
		Name:         "Pasta Marinara",
		EstMinutes:   25,
		Active:       true,
		Tags:         []string{"vegetarian"},
		Ingredients:  []catalog.Ingredient{{Name: "spaghetti"}},
	})
	if err != nil {
		t.Fatalf("second UpsertMeal failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected id %s to be preserved, got %s", first.ID, second.ID)
	}

	fetched, err := store.MealByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("MealByID failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected meal to exist")
	}
	if fetched.EstMinutes != 25 {
		t.Fatalf("expected updated minutes, got %d", fetched.EstMinutes)
	}
	if len(fetched.Ingredients) != 1 || fetched.Ingredients[0].Name != "spaghetti" {
		t.Fatalf("expected ingredients to be replaced, got %#v", fetched.Ingredients)
	}
	if len(fetched.Tags) != 1 || fetched.Tags[0] != "vegetarian" {
		t.Fatalf("unexpected tags %#v", fetched.Tags)
	}
}

func TestActiveMealsExcludesInactive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	for _, key := range []string{"tomato_soup", "grilled_cheese"} {
		if _, err := store.UpsertMeal(ctx, catalog.Meal{CanonicalKey: key, Name: key, Active: true}); err != nil {
			t.Fatalf("UpsertMeal %s: %v", key, err)
		}
	}
	if err := store.SetActive(ctx, "tomato_soup", false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	active, err := store.ActiveMeals(ctx)
	if err != nil {
		t.Fatalf("ActiveMeals failed: %v", err)
	}
	if len(active) != 1 || active[0].CanonicalKey != "grilled_cheese" {
		t.Fatalf("unexpected active meals %#v", active)
	}
	all, err := store.AllMeals(ctx)
	if err != nil {
		t.Fatalf("AllMeals failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 meals, got %d", len(all))
	}
	if err := store.SetActive(ctx, "missing", true); err == nil {
		t.Fatal("expected error for unknown meal")
	}
}

func TestMealByIDMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	meal, err := store.MealByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("MealByID failed: %v", err)
	}
	if meal != nil {
		t.Fatalf("expected nil meal, got %#v", meal)
	}
}

func TestInventoryUpsertAndConsume(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()
	seen := time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC)

	eggs, err := store.UpsertInventoryItem(ctx, catalog.InventoryItem{
		Household: "h1", Name: "eggs", Confidence: 0.9, RemainingQty: catalog.Quantity(1), LastSeenAt: seen, Source: "receipt",
	})
	if err != nil {
		t.Fatalf("upsert eggs: %v", err)
	}
	rice, err := store.UpsertInventoryItem(ctx, catalog.InventoryItem{
		Household: "h1", Name: "rice", Confidence: 0.8, LastSeenAt: seen, Source: "receipt",
	})
	if err != nil {
		t.Fatalf("upsert rice: %v", err)
	}
	if _, err := store.UpsertInventoryItem(ctx, catalog.InventoryItem{
		Household: "h2", Name: "eggs", Confidence: 1, LastSeenAt: seen,
	}); err != nil {
		t.Fatalf("upsert other household: %v", err)
	}

	if err := store.ConsumeInventory(ctx, "h1", []string{eggs.ID, rice.ID}); err != nil {
		t.Fatalf("ConsumeInventory failed: %v", err)
	}
	if err := store.ConsumeInventory(ctx, "h1", []string{eggs.ID}); err != nil {
		t.Fatalf("second ConsumeInventory failed: %v", err)
	}

	items, err := store.Inventory(ctx, "h1")
	if err != nil {
		t.Fatalf("Inventory failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	byName := map[string]catalog.InventoryItem{}
	for _, item := range items {
		byName[item.Name] = item
	}
	if got := byName["eggs"].RemainingQty; got == nil || *got != 0 {
		t.Fatalf("expected eggs remaining clamped to 0, got %v", got)
	}
	if got := byName["eggs"].Confidence; got != 0.9 {
		t.Fatalf("expected eggs confidence unchanged, got %v", got)
	}
	if got := byName["rice"].Confidence; got != 0.4 {
		t.Fatalf("expected rice confidence halved, got %v", got)
	}
	if !byName["rice"].LastSeenAt.Equal(seen) {
		t.Fatalf("unexpected last seen %v", byName["rice"].LastSeenAt)
	}

	other, err := store.Inventory(ctx, "h2")
	if err != nil {
		t.Fatalf("Inventory h2 failed: %v", err)
	}
	if len(other) != 1 || other[0].Confidence != 1 {
		t.Fatalf("expected other household untouched, got %#v", other)
	}
}

func TestUpsertInventoryRejectsBadConfidence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	_, err := store.UpsertInventoryItem(context.Background(), catalog.InventoryItem{
		Household: "h1", Name: "milk", Confidence: 1.5, LastSeenAt: time.Now(),
	})
	if err == nil {
		t.Fatal("expected confidence out of range error")
	}
}

func TestImportMealsFromTOMLAndYAML(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "meals.toml")
	tomlBody := `
[[meals]]
name = "Egg Fried Rice"
steps = ["Heat oil", "Scramble eggs", "Add rice"]
est_minutes = 15
tags = ["quick"]

[[meals.ingredients]]
name = "eggs"

[[meals.ingredients]]
name = "soy sauce"
staple = true
`
	if err := os.WriteFile(tomlPath, []byte(tomlBody), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	yamlPath := filepath.Join(dir, "meals.yaml")
	yamlBody := `
meals:
  - key: tomato_soup
    name: Tomato Soup
    instructions: Warm the soup.
    active: false
    ingredients:
      - name: canned tomatoes
`
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	if n, err := store.ImportMeals(ctx, tomlPath); err != nil || n != 1 {
		t.Fatalf("ImportMeals toml = %d, %v", n, err)
	}
	if n, err := store.ImportMeals(ctx, yamlPath); err != nil || n != 1 {
		t.Fatalf("ImportMeals yaml = %d, %v", n, err)
	}

	all, err := store.AllMeals(ctx)
	if err != nil {
		t.Fatalf("AllMeals failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 meals, got %d", len(all))
	}
	rice := all[0]
	if rice.CanonicalKey != "egg_fried_rice" {
		t.Fatalf("expected slugged key, got %q", rice.CanonicalKey)
	}
	if rice.Instructions != "Heat oil\nScramble eggs\nAdd rice" {
		t.Fatalf("unexpected instructions %q", rice.Instructions)
	}
	if !rice.Active || len(rice.Ingredients) != 2 || !rice.Ingredients[1].PantryStaple {
		t.Fatalf("unexpected meal %#v", rice)
	}
	if all[1].Active {
		t.Fatal("expected tomato soup to be inactive")
	}
}

func TestParseInventoryDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pantry.toml")
	body := `
[[items]]
name = "eggs"
confidence = 0.7
remaining = 6.0
last_seen = 2026-10-10T09:00:00Z

[[items]]
name = "rice"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	observed := time.Date(2026, 10, 12, 12, 0, 0, 0, time.UTC)
	items, err := catalog.ParseInventory(path, "h1", observed)
	if err != nil {
		t.Fatalf("ParseInventory failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Confidence != 0.7 || items[0].RemainingQty == nil || *items[0].RemainingQty != 6 {
		t.Fatalf("unexpected eggs %#v", items[0])
	}
	if !items[0].LastSeenAt.Equal(time.Date(2026, 10, 10, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected eggs last seen %v", items[0].LastSeenAt)
	}
	if items[1].Confidence != 1 || items[1].RemainingQty != nil || !items[1].LastSeenAt.Equal(observed) || items[1].Source != "import" {
		t.Fatalf("unexpected rice defaults %#v", items[1])
	}
}

func TestParseRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meals.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := catalog.ParseMeals(path); err == nil {
		t.Fatal("expected unsupported extension error")
	}
}
