// Package shell implements the line-oriented TCP front end: the
// accept loop (one goroutine per connection, modeled on
// rpc/transport/base/server.go), the session authentication/state machine,
// attribute handling (@echo, @json, @timing), and the echo/JSON response
// rendering that sits on top of internal/command's dispatch.
package shell
