package shell

import (
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/finnegan-hale/meidkv/internal/command"
	"github.com/finnegan-hale/meidkv/internal/engine"
	"github.com/finnegan-hale/meidkv/internal/lockdown"
	"github.com/finnegan-hale/meidkv/internal/logx"
	"github.com/finnegan-hale/meidkv/internal/metrics"
	"github.com/finnegan-hale/meidkv/internal/recovery"
)

// Options configures a new Server.
type Options struct {
	Engine   *engine.Engine
	Metrics  *metrics.Registry
	Lockdown *lockdown.Tracker
	Registry *command.Registry
	Tokens   map[string]TokenEntry

	LastRecovery recovery.Result
	ShardCount   int

	AuthTimeout    time.Duration
	MaxInputSize   int64

	Logger *logx.Logger
}

// SessionInfo is a point-in-time snapshot of one connected session, kept in
// the server's session registry and surfaced through info sessions and the
// connect/disconnect log lines.
type SessionInfo struct {
	ID            string
	RemoteIP      string
	Alias         string
	Authenticated bool
	ConnectedAt   time.Time
}

// Server owns the TCP listener, the per-token session accounting every
// connection's auth step needs, and the registry of currently connected
// sessions.
type Server struct {
	opts Options

	mu         sync.Mutex
	tokenConns map[string]int
	sessions   map[uuid.UUID]*SessionInfo
	listener   net.Listener
}

// New constructs a Server. It does not start listening.
func New(opts Options) *Server {
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logx.New("shell")
	}
	if opts.Tokens == nil {
		opts.Tokens = map[string]TokenEntry{}
	}
	return &Server{
		opts:       opts,
		tokenConns: make(map[string]int),
		sessions:   make(map[uuid.UUID]*SessionInfo),
	}
}

// ListenAndServe opens addr and accepts connections until the listener is
// closed, handling each connection in its own goroutine. Grounded on
// rpc/transport/base/server.go's accept loop: an Accept error is logged and
// the loop keeps running rather than tearing the listener down, since one
// transient accept failure shouldn't take the whole server offline.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "shell: listen")
	}
	s.listener = ln
	s.opts.Logger.Infof("listening on %s", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.opts.Logger.Errorf("accept error: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// acquireSlot reserves a connection slot for token, returning false if the
// token's max_connections has already been reached. max == -1 means
// unlimited.
func (s *Server) acquireSlot(token string, max int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max >= 0 && s.tokenConns[token] >= max {
		return false
	}
	s.tokenConns[token]++
	return true
}

// releaseSlot frees a connection slot acquired for token. It is a no-op for
// a session that never reached READY, since no slot was ever acquired for
// it.
func (s *Server) releaseSlot(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokenConns[token] > 0 {
		s.tokenConns[token]--
		if s.tokenConns[token] == 0 {
			delete(s.tokenConns, token)
		}
	}
}

// registerSession adds an accepted connection to the session registry,
// before it has authenticated.
func (s *Server) registerSession(id uuid.UUID, remoteIP string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &SessionInfo{ID: id.String(), RemoteIP: remoteIP, ConnectedAt: time.Now()}
}

// authenticateSession records the alias a session authenticated as.
func (s *Server) authenticateSession(id uuid.UUID, alias string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.sessions[id]; ok {
		info.Alias = alias
		info.Authenticated = true
	}
}

// unregisterSession removes a session from the registry once its connection
// closes.
func (s *Server) unregisterSession(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sessions returns a snapshot of every currently connected session.
func (s *Server) Sessions() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, info := range s.sessions {
		out = append(out, *info)
	}
	return out
}

// sessionSnapshots converts the session registry to the decoupled type
// command.Context carries, keeping the command package free of any import
// on the shell.
func (s *Server) sessionSnapshots() []command.SessionSnapshot {
	infos := s.Sessions()
	out := make([]command.SessionSnapshot, 0, len(infos))
	for _, info := range infos {
		out = append(out, command.SessionSnapshot{
			ID:            info.ID,
			RemoteIP:      info.RemoteIP,
			Alias:         info.Alias,
			Authenticated: info.Authenticated,
		})
	}
	return out
}
