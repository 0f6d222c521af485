package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Household identifies the household decisions are made for when the caller
// does not name one.
type Household struct {
	Key string `toml:"key"`
}

// Scoring contains meal selector weights and inventory matching thresholds.
type Scoring struct {
	InventoryWeight    float64  `toml:"inventory_weight"`
	TasteWeight        float64  `toml:"taste_weight"`
	RotationWindow     int      `toml:"rotation_window"`
	RotationPenalty    float64  `toml:"rotation_penalty"`
	ExplorationMax     float64  `toml:"exploration_max"`
	TieEpsilon         float64  `toml:"tie_epsilon"`
	MinConfidence      float64  `toml:"min_confidence"`
	StrongMatchQuality float64  `toml:"strong_match_quality"`
	WeakMatchCap       float64  `toml:"weak_match_cap"`
	MinMatchQuality    float64  `toml:"min_match_quality"`
	DecayHalfLifeDays  float64  `toml:"decay_half_life_days"`
	UsagePerDay        float64  `toml:"usage_per_day"`
	TasteScale         float64  `toml:"taste_scale"`
	SafeCoreKeys       []string `toml:"safe_core_keys"`
}

// DRM contains Dinner Rescue Mode trigger and rescue settings.
type DRM struct {
	// AutoRescue returns the rescue action directly when a trigger fires.
	// When false the arbiter answers with drmRecommended and no decision.
	AutoRescue             bool   `toml:"auto_rescue"`
	RejectionWindowMinutes int    `toml:"rejection_window_minutes"`
	LateWindowStartHour    int    `toml:"late_window_start_hour"`
	LateHour               int    `toml:"late_hour"`
	DinnerStartHour        int    `toml:"dinner_start_hour"`
	OrderCutoffHour        int    `toml:"order_cutoff_hour"`
	VendorKey              string `toml:"vendor_key"`
	VendorName             string `toml:"vendor_name"`
	DeepLinkTemplate       string `toml:"deep_link_template"`
}

// Autopilot contains the eligibility gates for automatic approval.
type Autopilot struct {
	Enabled           bool    `toml:"enabled"`
	WindowStartHour   int     `toml:"window_start_hour"`
	WindowEndHour     int     `toml:"window_end_hour"`
	MinInventoryScore float64 `toml:"min_inventory_score"`
	MinDecisions      int     `toml:"min_decisions"`
	UndoCooldownHours int     `toml:"undo_cooldown_hours"`
	RepeatDays        int     `toml:"repeat_days"`
}

// Feedback contains taste signal weights and pending decision expiry.
type Feedback struct {
	PendingTTLMinutes int     `toml:"pending_ttl_minutes"`
	ApproveWeight     float64 `toml:"approve_weight"`
	RejectWeight      float64 `toml:"reject_weight"`
	ExpireWeight      float64 `toml:"expire_weight"`
	UndoWeight        float64 `toml:"undo_weight"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Config encapsulates all configuration values for tonight.
//
// Configuration sections by subsystem:
//   - Paths: ledger database and log directories
//   - Household: default household key
//   - Scoring: meal selector weights and inventory matching thresholds
//   - DRM: Dinner Rescue Mode triggers, ordering window, vendor
//   - Autopilot: automatic approval gates
//   - Feedback: taste signal weights and pending expiry
//   - Logging: log format, level, and file rotation
type Config struct {
	Paths     Paths     `toml:"paths"`
	Household Household `toml:"household"`
	Scoring   Scoring   `toml:"scoring"`
	DRM       DRM       `toml:"drm"`
	Autopilot Autopilot `toml:"autopilot"`
	Feedback  Feedback  `toml:"feedback"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tonight/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tonight.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the SQLite database holding decision, taste, and rescue events.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "ledger.db")
}

// CatalogPath returns the SQLite database holding meals and household inventory.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// LockPath returns the file lock guarding ledger writes across processes.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "tonight.lock")
}

// LogPath returns the rotating log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "tonight.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// ErrConfigExists is returned by WriteSample when the target is already a file
// and overwrite was not requested.
var ErrConfigExists = errors.New("config file already exists")

// WriteSample writes the commented sample configuration to path. A non-empty
// household replaces the sample's placeholder key.
func WriteSample(path, household string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	content := sampleConfig
	if household = strings.TrimSpace(household); household != "" {
		content = strings.Replace(content, `key = "`+defaultHouseholdKey+`"`, "key = "+strconv.Quote(household), 1)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := file.WriteString(content); err != nil {
		_ = file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
