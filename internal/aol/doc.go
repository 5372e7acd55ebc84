// Package aol implements the append-only change log: a single-writer file
// per rotation window, fed by a coalescing op queue so repeated sets of the
// same key within one flush interval cost one line instead of many.
package aol
