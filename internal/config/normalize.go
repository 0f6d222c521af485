package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeHousehold()
	c.normalizeScoring()
	c.normalizeDRM()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("TONIGHT_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeHousehold() {
	if value, ok := os.LookupEnv("TONIGHT_HOUSEHOLD"); ok && strings.TrimSpace(value) != "" {
		c.Household.Key = value
	}
	c.Household.Key = strings.TrimSpace(c.Household.Key)
	if c.Household.Key == "" {
		c.Household.Key = defaultHouseholdKey
	}
}

func (c *Config) normalizeScoring() {
	keys := make([]string, 0, len(c.Scoring.SafeCoreKeys))
	seen := make(map[string]struct{}, len(c.Scoring.SafeCoreKeys))
	for _, key := range c.Scoring.SafeCoreKeys {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	c.Scoring.SafeCoreKeys = keys
}

func (c *Config) normalizeDRM() {
	c.DRM.VendorKey = strings.TrimSpace(c.DRM.VendorKey)
	if c.DRM.VendorKey == "" {
		c.DRM.VendorKey = defaultVendorKey
	}
	c.DRM.VendorName = strings.TrimSpace(c.DRM.VendorName)
	if c.DRM.VendorName == "" {
		c.DRM.VendorName = defaultVendorName
	}
	c.DRM.DeepLinkTemplate = strings.TrimSpace(c.DRM.DeepLinkTemplate)
	if c.DRM.DeepLinkTemplate == "" {
		c.DRM.DeepLinkTemplate = defaultDeepLinkTemplate
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = defaultLogMaxBackups
	}
}
