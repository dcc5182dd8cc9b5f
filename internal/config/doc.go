// Package config loads, validates, and defaults clipforge configuration
// from TOML files.
package config
