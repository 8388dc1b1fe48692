// Package config loads, normalizes, and validates pictor configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PICTOR_REDIS_URL. The Config type centralizes every knob the daemon and CLI
// need, so the watch directory, database location, and event bus credentials
// are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
