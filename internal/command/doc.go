// Package command implements the shell's line tokenizer, the command
// registry and dispatch, and the built-in commands (help, clear, exit,
// info, get, set, delete, sanitize). It knows nothing about sockets or
// session state - Context carries whatever a command needs, and Result
// carries back a status code the shell layer renders in either echo or
// JSON mode.
package command
