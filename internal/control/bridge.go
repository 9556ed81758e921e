package control

import (
	"bufio"
	"io"

	"krypto-game/internal/protocol"
	"krypto-game/pkg/logger"
)

const signalBuffer = 64

// Bridge collects control signals from every room process into one
// channel. Each attached room gets a dedicated goroutine blocking on its
// pipe; the directory's control loop is the only consumer, so registry
// mutation stays in one place.
type Bridge struct {
	signals chan Signal
	log     *logger.Logger
}

// NewBridge creates a bridge ready to attach room pipes.
func NewBridge(log *logger.Logger) *Bridge {
	return &Bridge{
		signals: make(chan Signal, signalBuffer),
		log:     log,
	}
}

// Attach starts draining one room's control pipe. The reader exits when
// the pipe closes, which follows the room's termination.
func (b *Bridge) Attach(pid int, r io.Reader) {
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			msg, ok := protocol.Parse(scanner.Text())
			if !ok {
				continue
			}
			sig, err := ParseSignal(msg)
			if err != nil {
				b.log.Warn("Dropping bad control frame from pid %d: %v", pid, err)
				continue
			}
			b.signals <- sig
		}
		if err := scanner.Err(); err != nil {
			b.log.Warn("Control pipe for pid %d closed with error: %v", pid, err)
		}
		b.log.Debug("Control pipe for pid %d drained", pid)
	}()
}

// Signals returns the channel the control loop consumes.
func (b *Bridge) Signals() <-chan Signal {
	return b.signals
}
