package shell

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/finnegan-hale/meidkv/internal/command"
	"github.com/finnegan-hale/meidkv/internal/lockdown"
	"github.com/finnegan-hale/meidkv/internal/value"
)

// conn bundles one accepted connection with the session state and I/O
// plumbing its handler loop needs. Grounded on
// rpc/transport/base/server.go's handleConnection: a per-connection mutex
// guards writes (here also the auth timer's own write-then-close), and a
// sync.Once keeps the socket teardown idempotent between the read loop and
// the timer goroutine.
type conn struct {
	net.Conn
	srv  *Server
	sess *Session

	writeMu   sync.Mutex
	closeOnce sync.Once

	authTimer *time.Timer
}

func (s *Server) handleConnection(nc net.Conn) {
	remoteIP := remoteIPOf(nc)
	c := &conn{Conn: nc, srv: s, sess: NewSession(remoteIP)}
	defer c.close()

	s.registerSession(c.sess.ID, remoteIP)
	defer s.unregisterSession(c.sess.ID)

	s.opts.Logger.Infof("session %s connected from %s", c.sess.ID, remoteIP)

	c.sendPrompt("Access token: ")
	c.authTimer = time.AfterFunc(s.opts.AuthTimeout, func() {
		c.writeMu.Lock()
		stillAwaiting := c.sess.State == StateAwaitAuth
		if stillAwaiting {
			c.sess.State = StateClosed
		}
		c.writeMu.Unlock()
		if stillAwaiting {
			c.writeResult("auth", "authentication timed out", value.Value{}, false, StatusTimeout)
			c.close()
		}
	})

	reader := bufio.NewReader(nc)
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		// A blank line is still a token (the guest login) while awaiting auth.
		if line != "" || (err == nil && c.sess.State == StateAwaitAuth) {
			c.handleLine(line)
		}
		if err != nil {
			break
		}
		if c.sess.State == StateClosed {
			break
		}
	}

	if c.sess.State == StateReady {
		s.releaseSlot(c.sess.Token)
	}
	s.opts.Logger.Infof("session %s disconnected", c.sess.ID)
}

func (c *conn) handleLine(line string) {
	switch c.sess.State {
	case StateAwaitAuth:
		c.handleAuthInput(line)
	case StateReady:
		c.handleReadyInput(line)
	}
}

func (c *conn) handleAuthInput(line string) {
	if isAttribute(line) {
		msg, ok := applyAttribute(c.sess, line)
		if ok {
			c.writeResult("attribute", msg, value.Value{}, false, StatusModeChanged)
		} else {
			c.writeResult("attribute", msg, value.Value{}, false, StatusCommandMismatch)
		}
		return
	}

	token := strings.TrimSpace(line)
	subject := c.lockdownSubject(token)

	if c.srv.opts.Lockdown.IsLockedDown(subject) {
		c.writeResult("auth", "authentication rejected", value.Value{}, false, StatusAuthorizeAgain)
		return
	}

	entry, found := c.srv.opts.Tokens[token]
	if !found {
		if len(c.srv.opts.Tokens) == 0 {
			entry, found = guestEntry, true
		}
	}
	if !found {
		_ = c.srv.opts.Lockdown.RecordFailure(subject)
		c.writeResult("auth", "authentication rejected", value.Value{}, false, StatusAuthorizeAgain)
		return
	}

	if !c.srv.acquireSlot(token, entry.MaxConnections) {
		c.writeResult("auth", "too many sessions for this token", value.Value{}, false, StatusFullRoom)
		c.sess.State = StateClosed
		return
	}

	c.authTimer.Stop()
	c.sess.State = StateReady
	c.sess.Alias = entry.Alias
	c.sess.Permissions = entry.Permissions
	c.sess.Token = token
	c.srv.authenticateSession(c.sess.ID, entry.Alias)

	c.writeResult("auth", fmt.Sprintf("authorized as %s", entry.Alias), value.Value{}, false, StatusAuthorized)
	if c.sess.Mode == ModeEcho {
		c.sendPrompt(entry.Alias + "> ")
	}
}

func (c *conn) handleReadyInput(line string) {
	if c.srv.opts.MaxInputSize > 0 && int64(len(line)) > c.srv.opts.MaxInputSize {
		c.writeResult("command", "input exceeds the configured size limit", value.Value{}, false, StatusSizeLimit)
		c.rePrompt()
		return
	}

	if isAttribute(line) {
		msg, ok := applyAttribute(c.sess, line)
		status := StatusModeChanged
		if !ok {
			status = StatusCommandMismatch
		}
		c.writeResult("attribute", msg, value.Value{}, false, status)
		c.rePrompt()
		return
	}

	ctx := &command.Context{
		Engine:       c.srv.opts.Engine,
		Metrics:      c.srv.opts.Metrics,
		Lockdown:     c.srv.opts.Lockdown,
		LastRecovery: c.srv.opts.LastRecovery,
		ShardCount:   c.srv.opts.ShardCount,
		SessionAlias: c.sess.Alias,
		Sessions:     c.srv.sessionSnapshots(),
		AOLPending:   c.srv.opts.Engine.AOLPending(),
	}

	start := time.Now()
	result := c.srv.opts.Registry.Dispatch(line, ctx)
	elapsed := time.Since(start)

	message := result.Message
	if c.sess.Timing && c.sess.Mode == ModeEcho {
		message = fmt.Sprintf("%s\nTook %dms to execute.", message, elapsed.Milliseconds())
	}

	status := Status(result.Status)
	c.writeResult("command", message, result.Value, result.PrintValue, status)

	if result.ClearScreen && c.sess.Mode == ModeEcho {
		c.sendPrompt("\033[2J\033[H")
	}

	if status == StatusExit {
		c.sess.State = StateClosed
		return
	}
	c.rePrompt()
}

func (c *conn) rePrompt() {
	if c.sess.Mode == ModeEcho && c.sess.State == StateReady {
		c.sendPrompt(c.sess.Alias + "> ")
	}
}

// writeResult renders result according to the session's current mode and
// writes it, newline-terminated, under the connection's write mutex.
func (c *conn) writeResult(action, message string, v value.Value, hasValue bool, status Status) {
	var line string
	if c.sess.Mode == ModeJSON {
		line = renderJSON(action, message, v, hasValue, status)
	} else {
		line = renderEcho(message, v, hasValue)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, _ = c.Conn.Write([]byte(line + "\n"))
}

func (c *conn) sendPrompt(text string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, _ = c.Conn.Write([]byte(text))
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		if c.authTimer != nil {
			c.authTimer.Stop()
		}
		_ = c.Conn.Close()
	})
}

func (c *conn) lockdownSubject(token string) string {
	if c.srv.opts.Lockdown.Mode() == lockdown.ModeIP {
		return c.sess.RemoteIP
	}
	return token
}

func remoteIPOf(nc net.Conn) string {
	host, _, err := net.SplitHostPort(nc.RemoteAddr().String())
	if err != nil {
		return nc.RemoteAddr().String()
	}
	return host
}
