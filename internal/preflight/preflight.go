package preflight

import (
	"context"

	"tonight/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config. A nil store
// reports as not opened.
func RunAll(ctx context.Context, cfg *config.Config, ledger SchemaReporter, catalog MealCounter) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckLedger(ctx, ledger))
	results = append(results, CheckCatalog(ctx, catalog))

	// Vendor deep links only matter when order rescues can happen.
	if cfg.DRM.VendorKey != "" {
		results = append(results, CheckDeepLinkTemplate(cfg.DRM))
	}

	return results
}
