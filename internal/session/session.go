// Package session tracks per-connection state for the directory and the
// room servers. Each accepted TCP connection gets one Session, keyed by the
// peer's address; a Registry owns the sessions of one server process.
package session

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Inbound flood guard per connection. Frames over the limit are dropped by
// the owning read loop; the connection itself survives.
const (
	messagesPerSecond = 5
	messageBurst      = 10
)

// Session represents one client connection. ID is derived from the peer
// address, so reconnects from the same source port collide predictably.
// Username is set by the connection's own read loop once the client
// identifies itself.
type Session struct {
	ID       string
	Username string

	conn    net.Conn
	writer  *bufio.Writer
	writeMu sync.Mutex

	mu           sync.RWMutex
	lastActivity time.Time
	connected    bool

	limiter *rate.Limiter
}

// New wraps an accepted connection in a Session marked connected.
func New(conn net.Conn) *Session {
	return &Session{
		ID:           conn.RemoteAddr().String(),
		conn:         conn,
		writer:       bufio.NewWriter(conn),
		lastActivity: time.Now(),
		connected:    true,
		limiter:      rate.NewLimiter(messagesPerSecond, messageBurst),
	}
}

// Touch refreshes the last-activity timestamp. Called for every inbound
// message, including ones that end up dropped.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity reports when the peer last sent anything.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Connected reports whether the session is still active.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Allow reports whether the next inbound message is within the flood limit.
func (s *Session) Allow() bool {
	return s.limiter.Allow()
}

// WriteLine sends one already-framed line to the peer. The per-session lock
// keeps concurrent broadcasts from interleaving partial writes.
func (s *Session) WriteLine(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.Connected() {
		return fmt.Errorf("session %s is closed", s.ID)
	}
	if _, err := s.writer.WriteString(line); err != nil {
		return fmt.Errorf("write to %s failed: %w", s.ID, err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flush to %s failed: %w", s.ID, err)
	}
	return nil
}

// Close marks the session disconnected and closes the transport. Safe to
// call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	wasConnected := s.connected
	s.connected = false
	s.mu.Unlock()

	if !wasConnected {
		return nil
	}
	return s.conn.Close()
}
