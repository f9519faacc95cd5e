// Package config loads and validates serialscan configuration.
//
// Configuration lives in a TOML file (default ~/.config/serialscan/config.toml)
// and every knob has a working default, so a missing file is not an error.
// Validation is deliberately strict: a misconfigured threshold or length
// range fails at startup rather than degrading scan quality silently.
package config
