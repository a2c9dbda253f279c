// Package config loads, normalizes, and validates figstash configuration.
//
// Configuration is TOML, resolved from an explicit --config path, the user
// config directory, or a figstash.toml in the working directory, in that
// order. Missing files fall back to Default. A handful of FIGSTASH_* environment
// variables override file values during normalization so one-off runs can
// change the codec, index location, or log level without editing the file.
package config
