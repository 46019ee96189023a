// Package config handles configuration loading for photorest.
//
// It provides functionality for:
//   - Loading configuration from .photorest.json or .photorest.yaml files
//   - Default configuration values
//   - PHOTOREST_* environment overrides, optionally seeded from a .env file
package config
