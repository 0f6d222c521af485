package ledger

import (
	"context"
	"sort"
)

// ApplySignal folds one signal into a cached score. Positive weights count
// as approvals and negative weights as rejections.
func ApplySignal(score TasteMealScore, signal TasteSignal) TasteMealScore {
	score.Household = signal.Household
	score.MealID = signal.MealID
	score.Score += signal.Weight
	switch {
	case signal.Weight > 0:
		score.Approvals++
	case signal.Weight < 0:
		score.Rejections++
	}
	if signal.CreatedAt.After(score.LastSeenAt) {
		score.LastSeenAt = signal.CreatedAt
	}
	return score
}

// FoldSignals rebuilds the per-meal cache from the raw signal log, ordered
// by meal id.
func FoldSignals(signals []TasteSignal) []TasteMealScore {
	byMeal := make(map[string]TasteMealScore)
	for _, sig := range signals {
		if sig.MealID == "" {
			continue
		}
		byMeal[sig.MealID] = ApplySignal(byMeal[sig.MealID], sig)
	}
	out := make([]TasteMealScore, 0, len(byMeal))
	for _, score := range byMeal {
		out = append(out, score)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MealID < out[j].MealID })
	return out
}

// TasteRebuilder is the store surface needed to rebuild the taste cache.
type TasteRebuilder interface {
	TasteSignalReader
	TasteCache
}

// RecomputeTaste rebuilds a household's taste cache from its signal log and
// returns the new scores.
func RecomputeTaste(ctx context.Context, store TasteRebuilder, household string) ([]TasteMealScore, error) {
	signals, err := store.TasteSignals(ctx, household)
	if err != nil {
		return nil, err
	}
	scores := FoldSignals(signals)
	if err := store.ReplaceTasteScores(ctx, household, scores); err != nil {
		return nil, err
	}
	return scores, nil
}
