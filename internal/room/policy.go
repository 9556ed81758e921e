package room

import (
	"strconv"
	"time"

	"krypto-game/internal/protocol"
	"krypto-game/internal/puzzle"
	"krypto-game/internal/session"
)

// modePolicy is the only seam between the classic and competitive rooms:
// puzzle acquisition and scoring. The round state machine itself is
// shared. All methods run with the room lock held.
type modePolicy interface {
	initialPuzzles(r *Room)
	nextPuzzle(r *Room) puzzle.Puzzle
	puzzleArgs(r *Room) []string
	onCorrect(r *Room, s *session.Session, st *PlayerRoundState)
	onIncorrect(r *Room, s *session.Session, st *PlayerRoundState)
}

// classicPolicy draws one puzzle at a time and scores nothing.
type classicPolicy struct{}

func (classicPolicy) initialPuzzles(r *Room) {
	r.current = r.drawSupplied()
}

func (classicPolicy) nextPuzzle(r *Room) puzzle.Puzzle {
	return r.drawSupplied()
}

func (classicPolicy) puzzleArgs(r *Room) []string {
	return r.current.Fields()
}

func (classicPolicy) onCorrect(r *Room, s *session.Session, st *PlayerRoundState) {
	protocol.Send(s, protocol.CmdSolutionCorrect)
}

func (classicPolicy) onIncorrect(r *Room, s *session.Session, st *PlayerRoundState) {
	protocol.Send(s, protocol.CmdSolutionIncorrect)
}

// competitivePolicy pre-draws a batch of puzzles and keeps a running
// score per player. Faster solutions earn more points; a wrong attempt
// costs one point, floored at zero. The round window only shapes the
// points, it never forces an advance.
type competitivePolicy struct {
	batch         []puzzle.Puzzle
	scores        map[string]int
	round         int
	roundStart    time.Time
	roundDuration time.Duration
}

func newCompetitivePolicy() *competitivePolicy {
	return &competitivePolicy{
		scores:        make(map[string]int),
		roundDuration: competitiveRoundSeconds * time.Second,
	}
}

func (p *competitivePolicy) initialPuzzles(r *Room) {
	p.batch = append(p.batch, r.drawSupplied())
	for len(p.batch) < competitiveBatchSize {
		pz, err := r.supply.NextPuzzle(100 * time.Millisecond)
		if err != nil {
			break
		}
		p.batch = append(p.batch, pz)
	}
	r.log.Info("Competitive batch holds %d puzzles", len(p.batch))

	r.current = p.batch[0]
	p.batch = p.batch[1:]
	p.round = 1
	p.roundStart = time.Now()
}

func (p *competitivePolicy) nextPuzzle(r *Room) puzzle.Puzzle {
	var next puzzle.Puzzle
	if len(p.batch) > 0 {
		next = p.batch[0]
		p.batch = p.batch[1:]
	} else {
		next = r.drawSupplied()
	}
	p.round++
	p.roundStart = time.Now()
	return next
}

func (p *competitivePolicy) timeLeft() time.Duration {
	left := p.roundDuration - time.Since(p.roundStart)
	if left < 0 {
		left = 0
	}
	return left
}

// puzzleArgs appends the round number and seconds left to the puzzle
// fields, so competitive clients can show the countdown.
func (p *competitivePolicy) puzzleArgs(r *Room) []string {
	return append(r.current.Fields(),
		strconv.Itoa(p.round), strconv.Itoa(int(p.timeLeft().Seconds())))
}

func (p *competitivePolicy) onCorrect(r *Room, s *session.Session, st *PlayerRoundState) {
	name := playerName(s, st)
	points := int(p.timeLeft().Seconds()) / 5
	if points < 1 {
		points = 1
	}
	p.scores[name] += points
	total := p.scores[name]

	protocol.Send(s, protocol.CmdSolutionCorrect, strconv.Itoa(points), strconv.Itoa(total))

	frame := protocol.NewMessage(protocol.CmdScoreUpdate, name, strconv.Itoa(total)).Encode()
	r.sessions.ForEachActive(func(other *session.Session) {
		other.WriteLine(frame)
	})
}

func (p *competitivePolicy) onIncorrect(r *Room, s *session.Session, st *PlayerRoundState) {
	name := playerName(s, st)
	if p.scores[name] > 0 {
		p.scores[name]--
	}
	protocol.Send(s, protocol.CmdSolutionIncorrect, strconv.Itoa(p.scores[name]))
}
