package protocol

import (
	"sync"

	"krypto-game/internal/session"
	"krypto-game/pkg/logger"
)

// HandlerFunc processes one decoded message for one session. Args arrive
// in wire order with no coercion.
type HandlerFunc func(s *session.Session, args []string)

// Mux routes decoded messages to registered handlers. Both the directory
// and every room build one mux at startup and feed it each inbound line.
type Mux struct {
	mu       sync.RWMutex
	handlers map[Command]HandlerFunc
	log      *logger.Logger
}

// NewMux creates an empty mux logging through log.
func NewMux(log *logger.Logger) *Mux {
	return &Mux{
		handlers: make(map[Command]HandlerFunc),
		log:      log,
	}
}

// Handle registers fn for cmd, replacing any previous handler.
func (m *Mux) Handle(cmd Command, fn HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[cmd] = fn
}

// Dispatch decodes rawLine and invokes the matching handler. It returns
// false only for unknown commands, which are logged and dropped with the
// connection left open. Empty lines are consumed silently. A panic inside
// a handler is contained to that one message: it is logged and answered
// with an ERROR reply, and the session survives.
func (m *Mux) Dispatch(rawLine string, s *session.Session) bool {
	msg, ok := Parse(rawLine)
	if !ok {
		return true
	}

	if s != nil {
		s.Touch()
	}

	m.mu.RLock()
	fn, found := m.handlers[msg.Command]
	m.mu.RUnlock()

	if !found {
		who := "unknown peer"
		if s != nil {
			who = s.ID
		}
		m.log.Warn("Unknown command %q from %s, dropping", msg.Command, who)
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			who := "unknown peer"
			if s != nil {
				who = s.ID
			}
			m.log.Error("Handler for %s panicked on message from %s: %v", msg.Command, who, r)
			if s != nil {
				Send(s, CmdError, "Internal server error")
			}
		}
	}()
	fn(s, msg.Args)
	return true
}

// Send frames and writes one message to the session.
func Send(s *session.Session, cmd Command, args ...string) error {
	return s.WriteLine(NewMessage(cmd, args...).Encode())
}
