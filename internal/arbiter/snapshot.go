package arbiter

import (
	"context"

	"golang.org/x/sync/errgroup"

	"tonight/internal/catalog"
	"tonight/internal/ledger"
)

// snapshot is everything read before a decision. Reads are independent so
// they run concurrently.
type snapshot struct {
	history []ledger.DecisionEvent
	meals   []catalog.Meal
	items   []catalog.InventoryItem
	taste   map[string]ledger.TasteMealScore
}

func (a *Arbiter) load(ctx context.Context, household string, withMeals bool) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		history, err := a.Ledger.RecentDecisions(gctx, household, a.HistoryLimit)
		if err != nil {
			return ledger.Wrap(ledger.ErrCollaborator, "arbiter", "load history", household, err)
		}
		snap.history = history
		return nil
	})
	g.Go(func() error {
		items, err := a.Catalog.Inventory(gctx, household)
		if err != nil {
			return ledger.Wrap(ledger.ErrCollaborator, "arbiter", "load inventory", household, err)
		}
		snap.items = items
		return nil
	})
	if withMeals {
		g.Go(func() error {
			meals, err := a.Catalog.ActiveMeals(gctx)
			if err != nil {
				return ledger.Wrap(ledger.ErrCollaborator, "arbiter", "load meals", "", err)
			}
			snap.meals = meals
			return nil
		})
		g.Go(func() error {
			scores, err := a.Ledger.TasteScores(gctx, household)
			if err != nil {
				return ledger.Wrap(ledger.ErrCollaborator, "arbiter", "load taste", household, err)
			}
			snap.taste = scores
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s snapshot) rawTaste() map[string]float64 {
	raw := make(map[string]float64, len(s.taste))
	for id, score := range s.taste {
		raw[id] = score.Score
	}
	return raw
}

func (s snapshot) inventoryNames() []string {
	names := make([]string, 0, len(s.items))
	for _, item := range s.items {
		names = append(names, item.Name)
	}
	return names
}
