package control

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"krypto-game/internal/protocol"
	"krypto-game/internal/puzzle"
	"krypto-game/pkg/logger"
)

// ErrSupplyClosed reports that the supply pipe reached end of stream,
// which happens when the directory goes away.
var ErrSupplyClosed = errors.New("puzzle supply closed")

// ErrSupplyEmpty reports that no puzzle arrived within the wait window.
var ErrSupplyEmpty = errors.New("puzzle supply empty")

const supplyBuffer = 8

// Link is the room-process side of the control plane: control reports go
// out (stdout), supply puzzles come in (stdin). A reader goroutine drains
// the supply pipe so round-completion checks never block on pipe I/O
// longer than their wait window.
type Link struct {
	pid   int
	out   io.Writer
	outMu sync.Mutex

	puzzles chan puzzle.Puzzle
	log     *logger.Logger
}

// NewLink starts the supply reader and returns the link. pid is this
// process's id, stamped on every outgoing report.
func NewLink(pid int, supply io.Reader, out io.Writer, log *logger.Logger) *Link {
	l := &Link{
		pid:     pid,
		out:     out,
		puzzles: make(chan puzzle.Puzzle, supplyBuffer),
		log:     log,
	}
	go l.readSupply(supply)
	return l
}

func (l *Link) readSupply(supply io.Reader) {
	scanner := bufio.NewScanner(supply)
	for scanner.Scan() {
		msg, ok := protocol.Parse(scanner.Text())
		if !ok {
			continue
		}
		if msg.Command != protocol.CmdPuzzle {
			l.log.Warn("Unexpected frame %q on supply pipe, skipping", msg.Command)
			continue
		}
		p, err := puzzle.Parse(msg.Args)
		if err != nil {
			l.log.Warn("Bad puzzle on supply pipe: %v", err)
			continue
		}
		l.puzzles <- p
	}
	if err := scanner.Err(); err != nil {
		l.log.Error("Supply pipe read failed: %v", err)
	}
	close(l.puzzles)
}

// NextPuzzle returns the next supplied puzzle, waiting up to wait for one
// to arrive. It returns ErrSupplyEmpty on timeout and ErrSupplyClosed once
// the pipe is gone; callers fall back to local generation on either.
func (l *Link) NextPuzzle(wait time.Duration) (puzzle.Puzzle, error) {
	select {
	case p, ok := <-l.puzzles:
		if !ok {
			return puzzle.Puzzle{}, ErrSupplyClosed
		}
		return p, nil
	case <-time.After(wait):
		return puzzle.Puzzle{}, ErrSupplyEmpty
	}
}

func (l *Link) report(cmd protocol.Command, extra ...string) error {
	l.outMu.Lock()
	defer l.outMu.Unlock()

	args := append([]string{strconv.Itoa(l.pid)}, extra...)
	frame := protocol.NewMessage(cmd, args...).Encode()
	if _, err := io.WriteString(l.out, frame); err != nil {
		return fmt.Errorf("control report %s failed: %w", cmd, err)
	}
	return nil
}

// ReportOK signals readiness at startup and, later, one consumed puzzle
// per call so the directory keeps the supply topped up.
func (l *Link) ReportOK() error {
	return l.report(protocol.CtlOK)
}

// ReportError signals a fatal room failure. The directory terminates the
// process and purges its record; there is no retry.
func (l *Link) ReportError(reason string) error {
	return l.report(protocol.CmdError, reason)
}

// ReportKill asks the directory to reap this room.
func (l *Link) ReportKill() error {
	return l.report(protocol.CtlKillServer)
}

// ReportPlayerJoin notifies the directory that a player connected.
func (l *Link) ReportPlayerJoin() error {
	return l.report(protocol.CtlPlayerJoin)
}

// ReportPlayerExit notifies the directory that a player left.
func (l *Link) ReportPlayerExit() error {
	return l.report(protocol.CtlPlayerExit)
}
