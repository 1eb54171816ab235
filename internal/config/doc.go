// Package config loads, normalizes, and validates exohunt configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as MAST_API_TOKEN and EXOHUNT_DATA_DIR. Every output path is
// derived from the data directory unless set explicitly, so no stage depends on
// the working directory.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical strategy names, and clear validation errors.
package config
