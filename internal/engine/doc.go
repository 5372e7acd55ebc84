// Package engine implements the core key/value API: sanitize, set, get,
// remove, exist, plus a stats operation that backs the shell's info command
// and a snapshot operation for comparing engine state. It owns the serialized
// mutation path over the lookup tables and the shard selector, and enqueues
// every accepted mutation to the append-only log before returning.
package engine
