package inventory

import (
	"fmt"
	"time"

	"tonight/internal/catalog"
	"tonight/internal/config"
)

// neutralScore is the score of a meal that lists no ingredients.
const neutralScore = 0.5

// Contribution records how one ingredient contributed to a meal's score.
type Contribution struct {
	Ingredient string
	Staple     bool
	ItemID     string
	Quality    float64
	Confidence float64
	Value      float64
}

// Result is a scored meal with its per-ingredient breakdown.
type Result struct {
	Score         float64
	Contributions []Contribution
}

// MatchedItemIDs lists, once each and in ingredient order, the inventory
// items that contributed a non-zero value. Several ingredients can match the
// same item; it is still one item to consume.
func (r Result) MatchedItemIDs() []string {
	var ids []string
	seen := make(map[string]bool, len(r.Contributions))
	for _, c := range r.Contributions {
		if c.ItemID == "" || c.Value <= 0 || seen[c.ItemID] {
			continue
		}
		seen[c.ItemID] = true
		ids = append(ids, c.ItemID)
	}
	return ids
}

// Scorer computes inventory availability scores.
type Scorer struct {
	Matcher       Matcher
	Decayer       Decayer
	MinConfidence float64
	StrongQuality float64
	WeakCap       float64
}

// NewScorer builds a Scorer from scoring configuration using the name matcher
// and half-life decay.
func NewScorer(cfg config.Scoring) *Scorer {
	return &Scorer{
		Matcher: NameMatcher{MinQuality: cfg.MinMatchQuality},
		Decayer: HalfLifeDecayer{
			HalfLife:    time.Duration(cfg.DecayHalfLifeDays * float64(24*time.Hour)),
			UsagePerDay: cfg.UsagePerDay,
		},
		MinConfidence: cfg.MinConfidence,
		StrongQuality: cfg.StrongMatchQuality,
		WeakCap:       cfg.WeakMatchCap,
	}
}

// Score returns the mean ingredient availability for meal.
func (s *Scorer) Score(meal catalog.Meal, items []catalog.InventoryItem, now time.Time) (float64, error) {
	res, err := s.Evaluate(meal, items, now)
	if err != nil {
		return 0, err
	}
	return res.Score, nil
}

// Evaluate scores meal and reports each ingredient's contribution.
func (s *Scorer) Evaluate(meal catalog.Meal, items []catalog.InventoryItem, now time.Time) (Result, error) {
	if len(meal.Ingredients) == 0 {
		return Result{Score: neutralScore}, nil
	}

	res := Result{Contributions: make([]Contribution, 0, len(meal.Ingredients))}
	var total float64
	for _, ing := range meal.Ingredients {
		c, err := s.contribution(ing, items, now)
		if err != nil {
			return Result{}, fmt.Errorf("score %s ingredient %q: %w", meal.CanonicalKey, ing.Name, err)
		}
		total += c.Value
		res.Contributions = append(res.Contributions, c)
	}
	res.Score = total / float64(len(meal.Ingredients))
	return res, nil
}

func (s *Scorer) contribution(ing catalog.Ingredient, items []catalog.InventoryItem, now time.Time) (Contribution, error) {
	c := Contribution{Ingredient: ing.Name, Staple: ing.PantryStaple}
	if ing.PantryStaple {
		c.Value = 1
		return c, nil
	}
	if len(items) == 0 || s.Matcher == nil {
		return c, nil
	}

	match, ok, err := s.Matcher.Match(ing.Name, items)
	if err != nil {
		return c, err
	}
	if !ok {
		return c, nil
	}
	c.ItemID = match.Item.ID
	c.Quality = clamp01(match.Quality)

	est := Estimate{Confidence: clamp01(match.Item.Confidence), RemainingQty: match.Item.RemainingQty}
	if s.Decayer != nil {
		est = s.Decayer.Decay(match.Item, now)
	}
	c.Confidence = est.Confidence

	if est.Confidence < s.MinConfidence {
		return c, nil
	}
	if est.RemainingQty != nil && *est.RemainingQty <= 0 {
		return c, nil
	}

	value := est.Confidence * c.Quality
	if c.Quality < s.StrongQuality && value > s.WeakCap {
		value = s.WeakCap
	}
	c.Value = value
	return c, nil
}
