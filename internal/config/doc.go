// Package config loads, normalizes, and validates tonight configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TONIGHT_HOUSEHOLD and TONIGHT_DATA_DIR. The Config type centralizes every
// knob the arbiter and CLI need: scoring weights, Dinner Rescue Mode windows,
// autopilot gates, feedback weights, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
