package testsupport

import (
	"path/filepath"
	"testing"

	"tonight/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Household.Key = "test-household"
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHousehold sets the default household key on the test config.
func WithHousehold(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Household.Key = key
	}
}

// WithAutopilot toggles autopilot on the test config.
func WithAutopilot(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Autopilot.Enabled = enabled
	}
}

// WithAutoRescue toggles whether DRM triggers return a rescue directly.
func WithAutoRescue(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.DRM.AutoRescue = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
