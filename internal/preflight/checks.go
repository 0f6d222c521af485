package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"tonight/internal/config"
	"tonight/internal/drm"
)

// SchemaReporter reports the schema version of an opened store.
type SchemaReporter interface {
	SchemaVersion(ctx context.Context) (int, error)
}

// MealCounter reports how many meals are available for selection.
type MealCounter interface {
	CountActiveMeals(ctx context.Context) (int, error)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckLedger verifies the decision ledger answers with a schema version.
func CheckLedger(ctx context.Context, store SchemaReporter) Result {
	const name = "Decision ledger"
	if store == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("schema unreadable (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("schema v%d", version)}
}

// CheckCatalog verifies at least one meal is active. An empty catalog still
// decides, but only ever the zero-cook fallback.
func CheckCatalog(ctx context.Context, counter MealCounter) Result {
	const name = "Meal catalog"
	if counter == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	n, err := counter.CountActiveMeals(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("count failed (%v)", err)}
	}
	if n == 0 {
		return Result{Name: name, Detail: "no active meals (import with 'tonight meals import')"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d active meals", n)}
}

// CheckDeepLinkTemplate verifies the vendor deep link renders.
func CheckDeepLinkTemplate(cfg config.DRM) Result {
	const name = "Vendor deep link"
	if strings.TrimSpace(cfg.DeepLinkTemplate) == "" {
		return Result{Name: name, Detail: "missing deep_link_template"}
	}
	linker := drm.TemplateLinker{Template: cfg.DeepLinkTemplate}
	link, err := linker.DeepLink(context.Background(), cfg.VendorKey, "household", "decision")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("template invalid (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: link}
}
