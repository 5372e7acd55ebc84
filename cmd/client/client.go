package client

import (
	"bufio"
	"net"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// session is a thin TCP client for the meidkv shell: dial, send the access
// token, then send one line per call and read one line back. It exists for
// scripting against a running server from the command line.
type session struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dial(addr, token string, timeout time.Duration) (*session, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "client: dial %s", addr)
	}
	s := &session{conn: conn, reader: bufio.NewReader(conn)}

	// The server sends "Access token: " with no trailing newline as its
	// greeting; read up to the colon rather than a full line.
	if _, err := s.reader.ReadString(':'); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "client: read greeting")
	}
	// Drain the single trailing space after the colon, if present.
	if b, err := s.reader.Peek(1); err == nil && len(b) == 1 && b[0] == ' ' {
		_, _ = s.reader.Discard(1)
	}

	if _, err := conn.Write([]byte(token + "\n")); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "client: send token")
	}
	authResp, err := s.reader.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "client: read auth response")
	}
	if !strings.Contains(authResp, "authorized") {
		conn.Close()
		return nil, errors.Newf("client: authentication failed: %s", strings.TrimSpace(authResp))
	}

	// Consume the "alias> " prompt the server writes right after.
	if _, err := s.reader.ReadString('>'); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "client: read prompt")
	}
	if b, err := s.reader.Peek(1); err == nil && len(b) == 1 && b[0] == ' ' {
		_, _ = s.reader.Discard(1)
	}

	return s, nil
}

// send writes one command line and reads one response line back.
func (s *session) send(line string) (string, error) {
	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		return "", errors.Wrap(err, "client: send command")
	}
	resp, err := s.reader.ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "client: read response")
	}
	// Consume the trailing "alias> " prompt the server writes after every
	// response, so the next send starts from a clean read position.
	_, _ = s.reader.ReadString('>')
	if b, err := s.reader.Peek(1); err == nil && len(b) == 1 && b[0] == ' ' {
		_, _ = s.reader.Discard(1)
	}
	return strings.TrimRight(resp, "\r\n"), nil
}

func (s *session) close() error {
	return s.conn.Close()
}
