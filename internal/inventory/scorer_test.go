package inventory_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"tonight/internal/catalog"
	"tonight/internal/config"
	"tonight/internal/inventory"
)

var now = time.Date(2026, 10, 14, 17, 30, 0, 0, time.UTC)

func newScorer() *inventory.Scorer {
	return inventory.NewScorer(config.Default().Scoring)
}

func item(name string, confidence float64) catalog.InventoryItem {
	return catalog.InventoryItem{ID: "item-" + name, Household: "h1", Name: name, Confidence: confidence, LastSeenAt: now}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreStaplesOnlyIsFull(t *testing.T) {
	meal := catalog.Meal{CanonicalKey: "toast", Ingredients: []catalog.Ingredient{
		{Name: "bread", PantryStaple: true},
		{Name: "butter", PantryStaple: true},
	}}
	inventories := [][]catalog.InventoryItem{
		nil,
		{item("bread", 0.1)},
		{item("lobster", 1)},
	}
	for _, items := range inventories {
		got, err := newScorer().Score(meal, items, now)
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		if got != 1.0 {
			t.Fatalf("expected 1.0 for staples-only meal, got %v (items %v)", got, items)
		}
	}
}

func TestScoreUnmatchedContributesZero(t *testing.T) {
	meal := catalog.Meal{CanonicalKey: "curry", Ingredients: []catalog.Ingredient{{Name: "chickpeas"}}}
	got, err := newScorer().Score(meal, []catalog.InventoryItem{item("milk", 1)}, now)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestScoreStapleAndStrongMatch(t *testing.T) {
	meal := catalog.Meal{CanonicalKey: "omelette", Ingredients: []catalog.Ingredient{
		{Name: "eggs"},
		{Name: "salt", PantryStaple: true},
	}}
	got, err := newScorer().Score(meal, []catalog.InventoryItem{item("eggs", 0.85)}, now)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if !approxEqual(got, 0.925) {
		t.Fatalf("expected 0.925, got %v", got)
	}
}

func TestScoreZeroIngredientsIsNeutral(t *testing.T) {
	got, err := newScorer().Score(catalog.Meal{CanonicalKey: "mystery"}, nil, now)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

type fixedMatcher struct {
	quality float64
	err     error
}

func (m fixedMatcher) Match(_ string, items []catalog.InventoryItem) (inventory.Match, bool, error) {
	if m.err != nil {
		return inventory.Match{}, false, m.err
	}
	if len(items) == 0 {
		return inventory.Match{}, false, nil
	}
	return inventory.Match{Item: items[0], Quality: m.quality}, true, nil
}

func TestScoreContributionRules(t *testing.T) {
	meal := catalog.Meal{CanonicalKey: "rice_bowl", Ingredients: []catalog.Ingredient{{Name: "rice"}}}
	old := now.Add(-30 * 24 * time.Hour)

	cases := []struct {
		name    string
		quality float64
		item    catalog.InventoryItem
		want    float64
	}{
		{"strong match", 0.9, item("rice", 1), 0.9},
		{"weak match capped", 0.79, item("rice", 1), 0.5},
		{"weak match below cap", 0.7, item("rice", 0.7), 0.49},
		{"low confidence", 1, item("rice", 0.59), 0},
		{"decayed below threshold", 1, catalog.InventoryItem{ID: "r", Name: "rice", Confidence: 1, LastSeenAt: old}, 0},
		{"zero remaining", 1, catalog.InventoryItem{ID: "r", Name: "rice", Confidence: 1, LastSeenAt: now, RemainingQty: catalog.Quantity(0)}, 0},
		{"positive remaining", 1, catalog.InventoryItem{ID: "r", Name: "rice", Confidence: 0.8, LastSeenAt: now, RemainingQty: catalog.Quantity(2)}, 0.8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scorer := newScorer()
			scorer.Matcher = fixedMatcher{quality: tc.quality}
			got, err := scorer.Score(meal, []catalog.InventoryItem{tc.item}, now)
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			if !approxEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestScorePropagatesMatcherFailure(t *testing.T) {
	scorer := newScorer()
	boom := errors.New("matcher offline")
	scorer.Matcher = fixedMatcher{err: boom}
	meal := catalog.Meal{CanonicalKey: "x", Ingredients: []catalog.Ingredient{{Name: "rice"}}}
	if _, err := scorer.Score(meal, []catalog.InventoryItem{item("rice", 1)}, now); !errors.Is(err, boom) {
		t.Fatalf("expected matcher error, got %v", err)
	}
}

func TestEvaluateMatchedItemIDs(t *testing.T) {
	meal := catalog.Meal{CanonicalKey: "fried_rice", Ingredients: []catalog.Ingredient{
		{Name: "eggs"},
		{Name: "cooked rice"},
		{Name: "oil", PantryStaple: true},
		{Name: "scallions"},
	}}
	items := []catalog.InventoryItem{item("eggs", 0.9), item("rice", 0.9), item("scallion", 0.2)}
	res, err := newScorer().Evaluate(meal, items, now)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	ids := res.MatchedItemIDs()
	if len(ids) != 2 || ids[0] != "item-eggs" || ids[1] != "item-rice" {
		t.Fatalf("unexpected matched ids %v", ids)
	}
}

func TestMatchedItemIDsListsSharedItemOnce(t *testing.T) {
	scorer := newScorer()
	scorer.Matcher = fixedMatcher{quality: 1}
	meal := catalog.Meal{CanonicalKey: "meringue_omelette", Ingredients: []catalog.Ingredient{
		{Name: "eggs"},
		{Name: "egg whites"},
	}}
	res, err := scorer.Evaluate(meal, []catalog.InventoryItem{item("eggs", 1)}, now)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(res.Contributions) != 2 || res.Contributions[1].ItemID != "item-eggs" {
		t.Fatalf("expected both ingredients to match the eggs item, got %+v", res.Contributions)
	}
	ids := res.MatchedItemIDs()
	if len(ids) != 1 || ids[0] != "item-eggs" {
		t.Fatalf("expected eggs once, got %v", ids)
	}
}

func TestHalfLifeDecayIsMonotone(t *testing.T) {
	decayer := inventory.HalfLifeDecayer{HalfLife: 10 * 24 * time.Hour, UsagePerDay: 1}
	obs := catalog.InventoryItem{Name: "milk", Confidence: 1, LastSeenAt: now, RemainingQty: catalog.Quantity(3)}

	prev := decayer.Decay(obs, now)
	if prev.Confidence != 1 || *prev.RemainingQty != 3 {
		t.Fatalf("expected fresh estimate, got %+v", prev)
	}
	for day := 1; day <= 40; day++ {
		est := decayer.Decay(obs, now.Add(time.Duration(day)*24*time.Hour))
		if est.Confidence > prev.Confidence || *est.RemainingQty > *prev.RemainingQty {
			t.Fatalf("day %d: estimate increased from %+v to %+v", day, prev, est)
		}
		prev = est
	}
	halved := decayer.Decay(obs, now.Add(10*24*time.Hour))
	if !approxEqual(halved.Confidence, 0.5) {
		t.Fatalf("expected half confidence after one half-life, got %v", halved.Confidence)
	}
	if *prev.RemainingQty != 0 {
		t.Fatalf("expected quantity floored at zero, got %v", *prev.RemainingQty)
	}
	future := decayer.Decay(obs, now.Add(-time.Hour))
	if future.Confidence != 1 {
		t.Fatalf("expected observation after now to be fresh, got %v", future.Confidence)
	}
}

func TestNameMatcherPrefersBestQuality(t *testing.T) {
	m := inventory.NameMatcher{MinQuality: 0.5}
	items := []catalog.InventoryItem{item("large brown eggs", 1), item("eggs", 1), item("milk", 1)}
	match, ok, err := m.Match("Eggs", items)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	if match.Item.Name != "eggs" || match.Quality != 1 {
		t.Fatalf("unexpected match %+v", match)
	}
	if _, ok, _ := m.Match("saffron", items); ok {
		t.Fatal("expected no match for saffron")
	}
}
