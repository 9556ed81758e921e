// Package control implements the process-to-process signaling between the
// directory and its room processes. Signals ride the room's stdout, puzzle
// supply frames ride the room's stdin, and both directions use the shared
// line protocol. Rooms only ever read the supply; the directory only ever
// writes it.
package control

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"krypto-game/internal/protocol"
	"krypto-game/internal/puzzle"
)

// Signal is one decoded control-plane message from a room process.
type Signal struct {
	Kind   protocol.Command
	PID    int
	Reason string
}

// ParseSignal decodes a control frame. The first argument is always the
// reporting process's pid; ERROR carries a reason after it.
func ParseSignal(msg protocol.Message) (Signal, error) {
	switch msg.Command {
	case protocol.CtlOK, protocol.CtlKillServer, protocol.CtlPlayerJoin, protocol.CtlPlayerExit, protocol.CmdError:
	default:
		return Signal{}, fmt.Errorf("not a control command: %q", msg.Command)
	}

	pid, err := strconv.Atoi(msg.Arg(0))
	if err != nil {
		return Signal{}, fmt.Errorf("control %s has bad pid %q", msg.Command, msg.Arg(0))
	}

	sig := Signal{Kind: msg.Command, PID: pid}
	if msg.Command == protocol.CmdError {
		sig.Reason = msg.Arg(1)
	}
	return sig, nil
}

// SupplyWriter pushes puzzle frames to one room's supply pipe. The lock
// keeps the control loop and room prefill from interleaving frames.
type SupplyWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSupplyWriter wraps the write end of a room's supply pipe.
func NewSupplyWriter(w io.Writer) *SupplyWriter {
	return &SupplyWriter{w: w}
}

// Push writes one puzzle frame.
func (s *SupplyWriter) Push(p puzzle.Puzzle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := protocol.NewMessage(protocol.CmdPuzzle, p.Fields()...).Encode()
	if _, err := io.WriteString(s.w, frame); err != nil {
		return fmt.Errorf("supply push failed: %w", err)
	}
	return nil
}
