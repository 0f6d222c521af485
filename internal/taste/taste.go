// Package taste turns a household's accumulated feedback into a preference
// score for a meal.
package taste

import (
	"math"
	"sort"
	"strings"

	"tonight/internal/catalog"
	"tonight/internal/textutil"
)

// DefaultScale is the raw score distance that moves the sigmoid from 0.5 to
// about 0.73.
const DefaultScale = 5.0

// Scorer normalizes raw taste scores into (0,1).
type Scorer struct {
	Scale float64
}

// Score maps the signed sum of a meal's taste signal weights through a
// logistic curve: 0 maps to 0.5, +Scale to ~0.73, -Scale to ~0.27.
func (s Scorer) Score(raw float64) float64 {
	scale := s.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	if math.IsNaN(raw) {
		raw = 0
	}
	return 1 / (1 + math.Exp(-raw/scale))
}

// Features is the internal feature bag stored with each taste signal. It is
// never returned to callers.
type Features struct {
	Tags        []string `json:"tags"`
	Ingredients []string `json:"ingredients"`
	TimeOfDay   string   `json:"timeOfDay"`
}

// ExtractFeatures collects the sorted, de-duplicated tags and folded
// ingredient names of meal along with the request's time window.
func ExtractFeatures(meal catalog.Meal, timeOfDay string) Features {
	tags := make([]string, 0, len(meal.Tags))
	for _, tag := range meal.Tags {
		tags = append(tags, strings.ToLower(strings.TrimSpace(tag)))
	}
	ingredients := make([]string, 0, len(meal.Ingredients))
	for _, ing := range meal.Ingredients {
		ingredients = append(ingredients, textutil.Fold(ing.Name))
	}
	return Features{
		Tags:        uniqueSorted(tags),
		Ingredients: uniqueSorted(ingredients),
		TimeOfDay:   timeOfDay,
	}
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
