// Package lockdown implements the failed-login throttle shared by every
// shell session: a persistent subject -> {expiry, attempts} map rewritten
// atomically to a JSON sidecar file, so a lockdown survives a process
// restart instead of resetting on the next launch.
package lockdown
