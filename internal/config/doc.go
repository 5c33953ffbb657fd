// Package config loads, normalizes, and validates the TOML configuration
// shared by the daemon and CLI. Path fields accept "~" and are expanded to
// absolute paths during Load.
package config
