package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tonight/internal/arbiter"
	"tonight/internal/catalog"
	"tonight/internal/config"
	"tonight/internal/feedback"
	"tonight/internal/ledger"
	"tonight/internal/logging"
)

type commandContext struct {
	configFlag    *string
	householdFlag *string
	envFlag       *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger  *slog.Logger
	ledger  *ledger.SQLiteStore
	catalog *catalog.Store
}

func newCommandContext(configFlag, householdFlag, envFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		householdFlag: householdFlag,
		envFlag:       envFlag,
	}
}

// loadEnv reads KEY=value pairs into the process environment without
// overriding variables that are already set. A missing default .env is fine.
func (c *commandContext) loadEnv() error {
	path := ""
	if c.envFlag != nil {
		path = strings.TrimSpace(*c.envFlag)
	}
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) household() string {
	if c.householdFlag != nil {
		if key := strings.TrimSpace(*c.householdFlag); key != "" {
			return key
		}
	}
	if c.config != nil {
		return c.config.Household.Key
	}
	return ""
}

func (c *commandContext) log() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	c.logger = logger
	return logger, nil
}

func (c *commandContext) openLedger() (*ledger.SQLiteStore, error) {
	if c.ledger != nil {
		return c.ledger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := ledger.OpenSQLite(cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	c.ledger = store
	return store, nil
}

func (c *commandContext) openCatalog() (*catalog.Store, error) {
	if c.catalog != nil {
		return c.catalog, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	c.catalog = store
	return store, nil
}

func (c *commandContext) feedbackService() (*feedback.Service, error) {
	logger, err := c.log()
	if err != nil {
		return nil, err
	}
	store, err := c.openLedger()
	if err != nil {
		return nil, err
	}
	cat, err := c.openCatalog()
	if err != nil {
		return nil, err
	}
	return feedback.NewService(c.config, store, cat, cat, logger), nil
}

func (c *commandContext) arbiter() (*arbiter.Arbiter, error) {
	service, err := c.feedbackService()
	if err != nil {
		return nil, err
	}
	return arbiter.New(c.config, c.ledger, c.catalog, service, c.logger), nil
}

func (c *commandContext) close() error {
	var errs []error
	if c.ledger != nil {
		errs = append(errs, c.ledger.Close())
		c.ledger = nil
	}
	if c.catalog != nil {
		errs = append(errs, c.catalog.Close())
		c.catalog = nil
	}
	return errors.Join(errs...)
}

// nowFlag resolves --now, defaulting to the local wall clock.
func nowFlag(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Now(), nil
	}
	return arbiter.ParseNow(value)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
