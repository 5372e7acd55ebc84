// Package config loads the server's YAML configuration file via Viper,
// applying .env and environment-variable overrides, and exposes it as a
// typed Config instead of scattered viper.GetString calls.
package config
