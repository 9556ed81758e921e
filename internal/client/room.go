package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"

	"krypto-game/internal/protocol"
	"krypto-game/internal/puzzle"
	"krypto-game/pkg/logger"
)

const (
	roomDialAttempts = 5
	roomDialTimeout  = 2 * time.Second
	roomDialBackoff  = 200 * time.Millisecond
)

// roomSession is one stay inside a room process. A listener goroutine
// renders everything the room pushes; the calling goroutine feeds player
// input back. Only the listener touches the score table.
type roomSession struct {
	conn     net.Conn
	writer   *bufio.Writer
	display  *Display
	input    *InputHandler
	logger   *logger.Logger
	username string
	roomName string
	mode     string
	scores   map[string]int
	leaving  atomic.Bool
	done     chan struct{}
}

func newRoomSession(display *Display, input *InputHandler, log *logger.Logger, username, roomName, mode string) *roomSession {
	return &roomSession{
		display:  display,
		input:    input,
		logger:   log,
		username: username,
		roomName: roomName,
		mode:     mode,
		scores:   make(map[string]int),
		done:     make(chan struct{}),
	}
}

// dial connects to the room, retrying briefly. A freshly created room may
// still be binding its listener when the directory hands out its endpoint.
func (rs *roomSession) dial(addr string) error {
	var lastErr error
	for attempt := 0; attempt < roomDialAttempts; attempt++ {
		conn, err := net.DialTimeout("tcp", addr, roomDialTimeout)
		if err == nil {
			rs.conn = conn
			rs.writer = bufio.NewWriter(conn)
			return nil
		}
		lastErr = err
		time.Sleep(roomDialBackoff)
	}
	return lastErr
}

// run plays until the player leaves or the room goes away.
func (rs *roomSession) run() {
	defer rs.conn.Close()

	scanner := bufio.NewScanner(rs.conn)

	// The first frame decides whether we are in: the room re-checks its
	// capacity on connect and answers SERVER_FULL when the lobby count
	// was stale.
	first, err := rs.readFrame(scanner)
	if err != nil {
		rs.display.PrintError(fmt.Sprintf("Room closed the connection: %v", err))
		return
	}
	if first.Command == protocol.CmdServerFull {
		rs.display.PrintError("Room is full")
		return
	}

	if first.Command == protocol.CmdGreeting {
		rs.roomName = first.Arg(0)
		rs.mode = first.Arg(1)
		rs.display.PrintRoomJoined(rs.roomName, rs.mode)
	} else {
		rs.handleFrame(first)
	}

	go rs.listen(scanner)

	rs.display.PrintInfo("Type a solution like 8+4/2-6, 'get' to repeat the puzzle,")
	rs.display.PrintInfo("'quit' to surrender the round, 'exit' to return to the lobby.")
	rs.inputLoop()
}

// readFrame reads the next non-empty frame from the room.
func (rs *roomSession) readFrame(scanner *bufio.Scanner) (protocol.Message, error) {
	for scanner.Scan() {
		msg, ok := protocol.Parse(scanner.Text())
		if !ok {
			continue
		}
		return msg, nil
	}

	if err := scanner.Err(); err != nil {
		return protocol.Message{}, err
	}
	return protocol.Message{}, io.EOF
}

// listen renders room frames until the connection ends.
func (rs *roomSession) listen(scanner *bufio.Scanner) {
	defer close(rs.done)

	for scanner.Scan() {
		msg, ok := protocol.Parse(scanner.Text())
		if !ok {
			continue
		}
		rs.handleFrame(msg)
	}

	if !rs.leaving.Load() {
		rs.display.PrintWarning("Connection to the room lost. Press Enter to return to the lobby.")
	}
}

// inputLoop turns typed lines into room commands.
func (rs *roomSession) inputLoop() {
	for {
		select {
		case <-rs.done:
			rs.display.PrintInfo("Returning to the lobby.")
			return
		default:
		}

		line, ok := rs.input.ReadLine("> ")
		if !ok {
			rs.leave()
			return
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit":
			rs.leave()
			return
		case "quit", "surrender":
			rs.send(protocol.CmdSurrender, rs.username)
		case "get", "puzzle":
			rs.send(protocol.CmdGetPuzzle)
		default:
			if strings.ContainsRune(line, '|') {
				rs.display.PrintWarning("Solutions must not contain the '|' character")
				continue
			}
			rs.send(protocol.CmdSubmitSolution, line, rs.username)
		}
	}
}

// leave announces the exit, closes the connection and waits for the
// listener to drain.
func (rs *roomSession) leave() {
	rs.leaving.Store(true)
	rs.send(protocol.CmdExit, rs.username)
	rs.conn.Close()
	<-rs.done
	rs.display.PrintInfo("Left the room.")
}

func (rs *roomSession) send(cmd protocol.Command, args ...string) {
	if _, err := rs.writer.WriteString(protocol.NewMessage(cmd, args...).Encode()); err != nil {
		rs.logger.Warn("Could not send %s: %v", cmd, err)
		return
	}
	if err := rs.writer.Flush(); err != nil {
		rs.logger.Warn("Could not send %s: %v", cmd, err)
	}
}

func (rs *roomSession) handleFrame(msg protocol.Message) {
	switch msg.Command {
	case protocol.CmdPuzzle:
		rs.showPuzzle("PUZZLE", msg, false)
	case protocol.CmdNewPuzzle:
		rs.showPuzzle("NEW PUZZLE", msg, true)
	case protocol.CmdSolutionCorrect:
		rs.showCorrect(msg)
	case protocol.CmdSolutionIncorrect:
		rs.display.PrintSolutionIncorrect(msg.Arg(0))
	case protocol.CmdSurrenderStatus:
		rs.display.PrintInfo(reasonOr(msg, "Surrendered"))
	case protocol.CmdGameStatus:
		rs.display.PrintGameStatus(msg.Arg(0), msg.Arg(1), msg.Arg(2))
	case protocol.CmdScoreUpdate:
		rs.showScoreUpdate(msg)
	case protocol.CmdError:
		rs.display.PrintError(reasonOr(msg, "Room error"))
	case protocol.CmdServerFull:
		rs.display.PrintError("Room is full")
	default:
		rs.logger.Debug("Unhandled room frame: %s", msg.Command)
	}
}

// showPuzzle renders a deal. Competitive frames carry two extra arguments,
// the round counter and the seconds left in the scoring window.
func (rs *roomSession) showPuzzle(label string, msg protocol.Message, roundStart bool) {
	p, err := puzzle.Parse(msg.Args)
	if err != nil {
		rs.logger.Warn("Bad puzzle frame: %v", err)
		return
	}

	if len(msg.Args) >= 7 {
		if roundStart && len(rs.scores) > 0 {
			rs.display.PrintStandings(rs.standings())
		}
		rs.display.PrintRoundPuzzle(label, p, msg.Arg(5), msg.Arg(6))
		return
	}
	rs.display.PrintPuzzle(label, p)
}

func (rs *roomSession) showCorrect(msg protocol.Message) {
	if len(msg.Args) >= 2 {
		if total, err := strconv.Atoi(msg.Arg(1)); err == nil {
			rs.scores[rs.username] = total
		}
		rs.display.PrintSolutionCorrect(msg.Arg(0), msg.Arg(1))
		return
	}
	rs.display.PrintSolutionCorrect("", "")
}

func (rs *roomSession) showScoreUpdate(msg protocol.Message) {
	name := msg.Arg(0)
	score, err := strconv.Atoi(msg.Arg(1))
	if err != nil {
		rs.logger.Warn("Bad score frame for %s: %q", name, msg.Arg(1))
		return
	}

	rs.scores[name] = score
	rs.display.PrintScoreUpdate(name, score, name == rs.username)
}

// standings renders the score table, best first.
func (rs *roomSession) standings() []string {
	type row struct {
		name  string
		score int
	}

	rows := make([]row, 0, len(rs.scores))
	for name, score := range rs.scores {
		rows = append(rows, row{name: name, score: score})
	}
	slices.SortFunc(rows, func(a, b row) int {
		if a.score != b.score {
			return b.score - a.score
		}
		return strings.Compare(a.name, b.name)
	})

	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf("%d. %s: %d", i+1, r.name, r.score)
	}
	return lines
}
