package inventory

import (
	"tonight/internal/catalog"
	"tonight/internal/textutil"
)

// Match is the best inventory item found for one ingredient.
type Match struct {
	Item    catalog.InventoryItem
	Quality float64
}

// Matcher finds the inventory item that best corresponds to an ingredient
// name. ok is false when nothing matches.
type Matcher interface {
	Match(ingredient string, items []catalog.InventoryItem) (match Match, ok bool, err error)
}

// NameMatcher matches on folded name similarity and ignores candidates that
// score below MinQuality.
type NameMatcher struct {
	MinQuality float64
}

// Match implements Matcher. Equal qualities resolve to the alphabetically
// first item name so repeated calls agree.
func (m NameMatcher) Match(ingredient string, items []catalog.InventoryItem) (Match, bool, error) {
	var (
		best  Match
		found bool
	)
	for _, item := range items {
		quality := textutil.NameSimilarity(ingredient, item.Name)
		if quality <= 0 || quality < m.MinQuality {
			continue
		}
		if !found || quality > best.Quality || (quality == best.Quality && item.Name < best.Item.Name) {
			best = Match{Item: item, Quality: quality}
			found = true
		}
	}
	return best, found, nil
}
