package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases text, strips combining marks ("jalapeño" -> "jalapeno"), and
// collapses every run of non-alphanumeric characters into one space.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}
	var b strings.Builder
	b.Grow(len(stripped))
	space := false
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// Slug converts a name to a lowercase underscore-separated key suitable for
// canonical meal keys. Returns "unknown" for input with no letters or digits.
func Slug(name string) string {
	folded := Fold(name)
	if folded == "" {
		return "unknown"
	}
	return strings.ReplaceAll(folded, " ", "_")
}

// Title renders a slug or free-form name for display ("grilled_cheese" -> "Grilled Cheese").
func Title(name string) string {
	spaced := strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if spaced == "" {
		return ""
	}
	return cases.Title(language.Und).String(spaced)
}
