package selector_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"tonight/internal/catalog"
	"tonight/internal/config"
	"tonight/internal/rotation"
	"tonight/internal/selector"
	"tonight/internal/testsupport"
)

var now = time.Date(2026, 10, 14, 17, 30, 0, 0, time.FixedZone("PDT", -7*3600))

func baseInput(meals ...catalog.Meal) selector.Input {
	return selector.Input{
		Meals:   meals,
		Context: rotation.Context{TimeWindow: "dinner", Energy: "ok"},
		Now:     now,
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	meals := []catalog.Meal{
		testsupport.Meal("pasta_marinara", 20, "pasta", "tomato sauce"),
		testsupport.Meal("egg_fried_rice", 15, "eggs", "rice", "staple:soy sauce"),
		testsupport.Meal("black_bean_tacos", 20, "black beans", "tortillas"),
		testsupport.Meal("omelette", 10, "eggs", "staple:butter"),
		testsupport.Meal("salad", 10, "lettuce"),
	}
	in := baseInput(meals...)
	in.Inventory = []catalog.InventoryItem{
		testsupport.Item("h1", "eggs", 0.9, now.Add(-24*time.Hour)),
		testsupport.Item("h1", "rice", 0.8, now.Add(-48*time.Hour)),
		testsupport.Item("h1", "tortillas", 0.7, now),
	}
	in.RawTaste = map[string]float64{"meal-omelette": 2, "meal-salad": -3}
	in.RecentMealIDs = []string{"meal-pasta_marinara"}
	in.Context.InventoryNames = []string{"eggs", "rice", "tortillas"}

	sel := selector.New(config.Default().Scoring)
	first, err := sel.Select(in)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if first.Winner == nil {
		t.Fatal("expected a winner")
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 25; i++ {
		shuffled := append([]catalog.Meal(nil), meals...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		in.Meals = shuffled
		got, err := sel.Select(in)
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if got.Winner.Meal.ID != first.Winner.Meal.ID || got.Winner.Final != first.Winner.Final {
			t.Fatalf("iteration %d: winner %s (%v) differs from %s (%v)",
				i, got.Winner.Meal.ID, got.Winner.Final, first.Winner.Meal.ID, first.Winner.Final)
		}
		if got.RequestHash != first.RequestHash {
			t.Fatal("request hash changed between identical requests")
		}
	}
}

func TestSelectTieBreaksByCanonicalKey(t *testing.T) {
	sel := selector.New(config.Default().Scoring)
	sel.ExplorationMax = 0

	in := baseInput(
		testsupport.Meal("zucchini_bake", 30),
		testsupport.Meal("apple_pancakes", 30),
		testsupport.Meal("mushroom_toast", 30),
	)
	in.Inventory = []catalog.InventoryItem{testsupport.Item("h1", "flour", 1, now)}
	res, err := sel.Select(in)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Winner == nil || res.Winner.Meal.CanonicalKey != "apple_pancakes" {
		t.Fatalf("expected apple_pancakes to win the tie, got %+v", res.Winner)
	}

	// A lead smaller than the tie epsilon still counts as a tie.
	in.RawTaste = map[string]float64{"meal-zucchini_bake": 0.0001}
	res, err = sel.Select(in)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Winner.Meal.CanonicalKey != "apple_pancakes" {
		t.Fatalf("expected near-tie to resolve by key, got %s", res.Winner.Meal.CanonicalKey)
	}

	in.RawTaste = map[string]float64{"meal-zucchini_bake": 1}
	res, err = sel.Select(in)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Winner.Meal.CanonicalKey != "zucchini_bake" {
		t.Fatalf("expected clear taste lead to win, got %s", res.Winner.Meal.CanonicalKey)
	}
}

func TestRotationPenaltyIsExact(t *testing.T) {
	sel := selector.New(config.Default().Scoring)
	meal := testsupport.Meal("tomato_soup", 15, "tomatoes")
	in := baseInput(meal)
	in.Inventory = []catalog.InventoryItem{testsupport.Item("h1", "tomatoes", 0.9, now)}

	fresh, err := sel.Score(meal, in)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	in.RecentMealIDs = []string{"meal-a", "meal-b", "meal-tomato_soup"}
	repeated, err := sel.Score(meal, in)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if repeated.Rotation != -0.20 || fresh.Rotation != 0 {
		t.Fatalf("unexpected rotation terms %v / %v", repeated.Rotation, fresh.Rotation)
	}
	if diff := repeated.Final - fresh.Final; math.Abs(diff+0.20) > 1e-12 {
		t.Fatalf("expected final score to drop by 0.20, got %v", diff)
	}
}

func TestScoreFormula(t *testing.T) {
	sel := selector.New(config.Default().Scoring)
	meal := testsupport.Meal("omelette", 10, "eggs", "staple:salt")
	in := baseInput(meal)
	in.Inventory = []catalog.InventoryItem{testsupport.Item("h1", "eggs", 0.85, now)}

	c, err := sel.Score(meal, in)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	want := 0.60*0.925 + 0.35*0.5 + c.Exploration
	if math.Abs(c.Final-want) > 1e-12 {
		t.Fatalf("final = %v, want %v", c.Final, want)
	}
	if c.Exploration < 0 || c.Exploration > 0.05 {
		t.Fatalf("exploration out of range: %v", c.Exploration)
	}
	if len(c.MatchedItemIDs) != 1 || c.MatchedItemIDs[0] != "item-eggs" {
		t.Fatalf("unexpected matched items %v", c.MatchedItemIDs)
	}
}

func TestSafeCoreWhenInventoryEmpty(t *testing.T) {
	sel := selector.New(config.Default().Scoring)
	in := baseInput(
		testsupport.Meal("beef_wellington", 120),
		testsupport.Meal("grilled_cheese", 10, "staple:bread", "staple:cheese"),
	)
	in.RawTaste = map[string]float64{"meal-beef_wellington": 50}

	res, err := sel.Select(in)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !res.SafeCore || res.Winner == nil || res.Winner.Meal.CanonicalKey != "grilled_cheese" {
		t.Fatalf("expected safe-core winner, got %+v (safe core %v)", res.Winner, res.SafeCore)
	}
}

func TestSafeCoreFallsBackToFullCatalog(t *testing.T) {
	sel := selector.New(config.Default().Scoring)
	res, err := sel.Select(baseInput(testsupport.Meal("beef_wellington", 120)))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.SafeCore || res.Winner == nil || res.Winner.Meal.CanonicalKey != "beef_wellington" {
		t.Fatalf("expected full catalog fallback, got %+v", res.Winner)
	}
}

func TestSelectEmptyCatalogHasNoWinner(t *testing.T) {
	sel := selector.New(config.Default().Scoring)
	inactive := testsupport.Meal("retired", 10)
	inactive.Active = false
	res, err := sel.Select(baseInput(inactive))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Winner != nil {
		t.Fatalf("expected no winner, got %+v", res.Winner)
	}
	if res.RequestHash == "" {
		t.Fatal("expected request hash even without a winner")
	}
}
