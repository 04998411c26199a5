// Package config loads Pipegent settings from a TOML file, fills defaults,
// applies environment overrides and validates the result.
//
// Resolution order (later wins):
//
//	Default() -> TOML file -> environment
//
// The file is taken from the explicit path, then PIPEGENT_CONFIG, then
// ./pipegent.toml when present. A missing default file is not an error.
package config
