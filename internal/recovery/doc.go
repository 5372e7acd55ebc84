// Package recovery replays the append-only log directory at startup,
// reconstructing engine state before the shell starts accepting
// connections. Replay is best-effort per file: a corrupt or unreadable
// file is logged and skipped rather than aborting startup.
package recovery
