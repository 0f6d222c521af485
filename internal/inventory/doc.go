// Package inventory scores how well a household's pantry covers a meal.
//
// Each non-staple ingredient is matched against the household's inventory
// estimates through a Matcher, the matched item's confidence is aged through a
// Decayer, and the per-ingredient contributions are averaged. Staples always
// count as fully available. Scoring is pure: the caller supplies "now".
package inventory
