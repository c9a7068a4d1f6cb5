// Package config loads, normalizes, and validates songrank configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the SONGRANK_API_URL environment
// fallback. The Config type centralizes every knob the CLI needs so the
// backend location, state directory and log settings are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
