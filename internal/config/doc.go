// Package config loads and validates the TOML configuration file. Lookup
// order: explicit --config flag, ~/.config/bindery/config.toml, then a
// bindery.toml in the working directory. Missing files fall back to defaults.
package config
