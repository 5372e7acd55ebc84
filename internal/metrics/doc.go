// Package metrics wires rcrowley/go-metrics counters and timers for the
// engine and AOL; the AOL ones are surfaced through the shell's info
// command.
package metrics
