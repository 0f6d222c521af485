// Package textutil provides text processing utilities for matching ingredient
// and inventory names.
//
// The primary use cases are:
//   - Folding names to an accent-free, lowercase, single-spaced form
//   - Creating token-based fingerprints and computing cosine similarity
//   - Scoring how well a pantry item name matches an ingredient name
//   - Deriving stable slugs and display titles from free-form names
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// Tokenization folds text, splits on non-alphanumeric characters, reduces
// simple plurals, and filters tokens shorter than 3 characters.
package textutil
