package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateDRM(); err != nil {
		return err
	}
	if err := c.validateAutopilot(); err != nil {
		return err
	}
	if err := c.validateFeedback(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScoring() error {
	s := c.Scoring
	if s.InventoryWeight < 0 || s.TasteWeight < 0 {
		return errors.New("scoring weights must not be negative")
	}
	if s.InventoryWeight+s.TasteWeight > 1+1e-9 {
		return fmt.Errorf("scoring.inventory_weight + scoring.taste_weight must not exceed 1 (got %.2f)", s.InventoryWeight+s.TasteWeight)
	}
	if s.RotationWindow < 0 {
		return errors.New("scoring.rotation_window must not be negative")
	}
	if s.RotationPenalty > 0 {
		return errors.New("scoring.rotation_penalty must be zero or negative")
	}
	if s.ExplorationMax < 0 || s.ExplorationMax > 0.25 {
		return errors.New("scoring.exploration_max must be between 0 and 0.25")
	}
	if s.TieEpsilon < 0 {
		return errors.New("scoring.tie_epsilon must not be negative")
	}
	for name, value := range map[string]float64{
		"scoring.min_confidence":       s.MinConfidence,
		"scoring.strong_match_quality": s.StrongMatchQuality,
		"scoring.weak_match_cap":       s.WeakMatchCap,
		"scoring.min_match_quality":    s.MinMatchQuality,
	} {
		if value < 0 || value > 1 || math.IsNaN(value) {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if s.DecayHalfLifeDays <= 0 {
		return errors.New("scoring.decay_half_life_days must be positive")
	}
	if s.UsagePerDay < 0 {
		return errors.New("scoring.usage_per_day must not be negative")
	}
	if s.TasteScale <= 0 {
		return errors.New("scoring.taste_scale must be positive")
	}
	return nil
}

func (c *Config) validateDRM() error {
	d := c.DRM
	if d.RejectionWindowMinutes <= 0 {
		return errors.New("drm.rejection_window_minutes must be positive")
	}
	for name, hour := range map[string]int{
		"drm.late_window_start_hour": d.LateWindowStartHour,
		"drm.late_hour":              d.LateHour,
		"drm.dinner_start_hour":      d.DinnerStartHour,
		"drm.order_cutoff_hour":      d.OrderCutoffHour,
	} {
		if hour < 0 || hour > 24 {
			return fmt.Errorf("%s must be between 0 and 24", name)
		}
	}
	if d.LateWindowStartHour > d.LateHour {
		return errors.New("drm.late_window_start_hour must not be after drm.late_hour")
	}
	if d.DinnerStartHour >= d.OrderCutoffHour {
		return errors.New("drm.dinner_start_hour must be before drm.order_cutoff_hour")
	}
	return nil
}

func (c *Config) validateAutopilot() error {
	a := c.Autopilot
	if a.WindowStartHour < 0 || a.WindowEndHour > 24 || a.WindowStartHour >= a.WindowEndHour {
		return errors.New("autopilot window must satisfy 0 <= window_start_hour < window_end_hour <= 24")
	}
	if a.MinInventoryScore < 0 || a.MinInventoryScore > 1 {
		return errors.New("autopilot.min_inventory_score must be between 0 and 1")
	}
	if a.MinDecisions < 0 {
		return errors.New("autopilot.min_decisions must not be negative")
	}
	if a.UndoCooldownHours < 0 {
		return errors.New("autopilot.undo_cooldown_hours must not be negative")
	}
	if a.RepeatDays < 0 {
		return errors.New("autopilot.repeat_days must not be negative")
	}
	return nil
}

func (c *Config) validateFeedback() error {
	f := c.Feedback
	if f.PendingTTLMinutes <= 0 {
		return errors.New("feedback.pending_ttl_minutes must be positive")
	}
	if f.ApproveWeight <= 0 {
		return errors.New("feedback.approve_weight must be positive")
	}
	if f.RejectWeight >= 0 || f.ExpireWeight >= 0 || f.UndoWeight >= 0 {
		return errors.New("feedback reject, expire, and undo weights must be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
