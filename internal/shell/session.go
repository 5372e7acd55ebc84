package shell

import (
	"github.com/google/uuid"
)

// State is a session's place in the auth/command lifecycle.
type State int

const (
	StateAwaitAuth State = iota
	StateReady
	StateClosed
)

// Mode is a session's response rendering mode.
type Mode int

const (
	ModeEcho Mode = iota
	ModeJSON
)

// Session is one connection's mutable state: its auth/command FSM
// position, rendering substate flags, and the grant it authenticated
// with. It carries no I/O of its own - conn.go owns the socket and writes
// through session only to read its flags.
type Session struct {
	ID    uuid.UUID
	State State
	Mode  Mode
	Timing bool

	Alias       string
	Permissions []string
	Token       string

	RemoteIP string
}

// NewSession allocates a fresh AWAIT_AUTH session for an accepted
// connection.
func NewSession(remoteIP string) *Session {
	return &Session{
		ID:       uuid.New(),
		State:    StateAwaitAuth,
		Mode:     ModeEcho,
		RemoteIP: remoteIP,
	}
}
