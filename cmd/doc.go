// Package cmd implements the command-line interface for meidkv, an
// in-memory key/value store with sharded on-disk durability and a
// line-oriented TCP shell.
//
// The package is organized into subpackages:
//
//   - serve: starts the store and its TCP shell
//   - client: a thin TCP client for scripting against a running shell
//   - util: shared cobra/viper helpers (internal use)
//
// See meidkv --help for the full command list.
package cmd
