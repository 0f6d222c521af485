// Package selector combines inventory, taste, rotation and exploration into
// one score per candidate meal and picks a single winner.
package selector

import (
	"math"
	"strings"
	"time"

	"tonight/internal/catalog"
	"tonight/internal/config"
	"tonight/internal/inventory"
	"tonight/internal/rotation"
	"tonight/internal/taste"
)

// Input is everything the selector needs for one household request.
type Input struct {
	Meals     []catalog.Meal
	Inventory []catalog.InventoryItem
	// RawTaste holds the signed sum of taste signal weights per meal id.
	RawTaste map[string]float64
	// RecentMealIDs lists served meals, most recent first.
	RecentMealIDs []string
	Context       rotation.Context
	Now           time.Time
}

// Candidate is one scored meal.
type Candidate struct {
	Meal           catalog.Meal
	InventoryScore float64
	TasteScore     float64
	Exploration    float64
	Rotation       float64
	Final          float64
	MatchedItemIDs []string
}

// Result is the outcome of a selection. Winner is nil when no meal could be
// considered.
type Result struct {
	Winner      *Candidate
	RequestHash string
	SafeCore    bool
}

// Selector scores and picks meals.
type Selector struct {
	Inventory       *inventory.Scorer
	Taste           taste.Scorer
	InventoryWeight float64
	TasteWeight     float64
	RotationWindow  int
	RotationPenalty float64
	ExplorationMax  float64
	TieEpsilon      float64
	SafeCoreKeys    []string
}

// New builds a Selector from scoring configuration.
func New(cfg config.Scoring) *Selector {
	return &Selector{
		Inventory:       inventory.NewScorer(cfg),
		Taste:           taste.Scorer{Scale: cfg.TasteScale},
		InventoryWeight: cfg.InventoryWeight,
		TasteWeight:     cfg.TasteWeight,
		RotationWindow:  cfg.RotationWindow,
		RotationPenalty: cfg.RotationPenalty,
		ExplorationMax:  cfg.ExplorationMax,
		TieEpsilon:      cfg.TieEpsilon,
		SafeCoreKeys:    append([]string(nil), cfg.SafeCoreKeys...),
	}
}

// Select scores the candidate set and returns the single best meal. Scores
// within TieEpsilon of the best are resolved by ascending canonical key, so
// the outcome never depends on input order.
func (s *Selector) Select(in Input) (Result, error) {
	candidates, safeCore := s.candidates(in)
	res := Result{RequestHash: rotation.RequestHash(in.Context), SafeCore: safeCore}
	if len(candidates) == 0 {
		return res, nil
	}

	scored := make([]Candidate, 0, len(candidates))
	best := math.Inf(-1)
	for _, meal := range candidates {
		c, err := s.score(meal, in, res.RequestHash)
		if err != nil {
			return Result{}, err
		}
		if c.Final > best {
			best = c.Final
		}
		scored = append(scored, c)
	}

	var winner *Candidate
	for i := range scored {
		c := &scored[i]
		if best-c.Final > s.TieEpsilon {
			continue
		}
		if winner == nil || c.Meal.CanonicalKey < winner.Meal.CanonicalKey {
			winner = c
		}
	}
	res.Winner = winner
	return res, nil
}

// Score computes the final score for one meal.
func (s *Selector) Score(meal catalog.Meal, in Input) (Candidate, error) {
	return s.score(meal, in, rotation.RequestHash(in.Context))
}

func (s *Selector) score(meal catalog.Meal, in Input, requestHash string) (Candidate, error) {
	inv, err := s.Inventory.Evaluate(meal, in.Inventory, in.Now)
	if err != nil {
		return Candidate{}, err
	}
	c := Candidate{
		Meal:           meal,
		InventoryScore: inv.Score,
		TasteScore:     s.Taste.Score(in.RawTaste[meal.ID]),
		Exploration:    rotation.Exploration(requestHash, meal.ID, s.ExplorationMax),
		Rotation:       rotation.Penalty(meal.ID, in.RecentMealIDs, s.RotationWindow, s.RotationPenalty),
		MatchedItemIDs: inv.MatchedItemIDs(),
	}
	c.Final = s.InventoryWeight*c.InventoryScore + s.TasteWeight*c.TasteScore + c.Exploration + c.Rotation
	return c, nil
}

// candidates returns the active meals, narrowed to the safe core when the
// household has no inventory on record and the safe core is non-empty.
func (s *Selector) candidates(in Input) ([]catalog.Meal, bool) {
	active := make([]catalog.Meal, 0, len(in.Meals))
	for _, meal := range in.Meals {
		if meal.Active {
			active = append(active, meal)
		}
	}
	if len(in.Inventory) > 0 || len(s.SafeCoreKeys) == 0 {
		return active, false
	}

	allowed := make(map[string]struct{}, len(s.SafeCoreKeys))
	for _, key := range s.SafeCoreKeys {
		allowed[strings.ToLower(strings.TrimSpace(key))] = struct{}{}
	}
	var core []catalog.Meal
	for _, meal := range active {
		if _, ok := allowed[strings.ToLower(meal.CanonicalKey)]; ok {
			core = append(core, meal)
		}
	}
	if len(core) == 0 {
		return active, false
	}
	return core, true
}
