package textutil

// ContainmentQuality is the match quality assigned when every token of the
// shorter name appears in the longer one ("eggs" vs "large brown eggs").
const ContainmentQuality = 0.85

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// NameSimilarity scores how well two ingredient or pantry names refer to the
// same thing, in [0,1]. Identical folded names score 1; token containment
// scores ContainmentQuality; anything else falls back to cosine similarity.
func NameSimilarity(a, b string) float64 {
	fa, fb := Fold(a), Fold(b)
	if fa == "" || fb == "" {
		return 0
	}
	if fa == fb {
		return 1
	}
	pa, pb := NewFingerprint(fa), NewFingerprint(fb)
	if pa == nil || pb == nil {
		return 0
	}
	cos := CosineSimilarity(pa, pb)
	if cos >= 0.999999 {
		return 1
	}
	if pa.Contains(pb) || pb.Contains(pa) {
		if cos > ContainmentQuality {
			return cos
		}
		return ContainmentQuality
	}
	return cos
}
