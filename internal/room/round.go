package room

import (
	"strconv"
	"strings"

	"krypto-game/internal/protocol"
	"krypto-game/internal/puzzle"
	"krypto-game/internal/session"
)

func (r *Room) bindHandlers() {
	r.mux.Handle(protocol.CmdGetPuzzle, r.handleGetPuzzle)
	r.mux.Handle(protocol.CmdSubmitSolution, r.handleSubmitSolution)
	r.mux.Handle(protocol.CmdSurrender, r.handleSurrender)
	r.mux.Handle(protocol.CmdExit, r.handleExit)
}

func (r *Room) handleGetPuzzle(s *session.Session, args []string) {
	r.mu.Lock()
	if r.current.Target() == 0 {
		r.mu.Unlock()
		protocol.Send(s, protocol.CmdError, "No puzzle available")
		return
	}
	puzzleArgs := r.policy.puzzleArgs(r)
	r.mu.Unlock()

	protocol.Send(s, protocol.CmdPuzzle, puzzleArgs...)
}

// handleSubmitSolution scores one attempt. A player in a terminal round
// state gets the idempotent rejection; an incorrect expression leaves the
// player PENDING so they may retry.
func (r *Room) handleSubmitSolution(s *session.Session, args []string) {
	var expr, username string
	if len(args) > 0 {
		expr = strings.TrimSpace(args[0])
	}
	if len(args) > 1 {
		username = strings.TrimSpace(args[1])
	}

	r.mu.Lock()
	st := r.roundState(s, username)
	if st.State != RoundPending {
		r.mu.Unlock()
		protocol.Send(s, protocol.CmdError, "Already submitted for this puzzle")
		return
	}
	if expr == "" {
		r.mu.Unlock()
		protocol.Send(s, protocol.CmdError, "Invalid solution format")
		return
	}

	if puzzle.VerifySolution(expr, r.current.Target()) {
		st.State = RoundCorrect
		r.policy.onCorrect(r, s, st)
		r.mu.Unlock()

		r.log.Info("Player %s solved the puzzle", playerName(s, st))
		r.broadcastStats()
		r.checkRoundComplete()
		return
	}

	r.policy.onIncorrect(r, s, st)
	r.mu.Unlock()
	r.log.Debug("Player %s submitted a wrong solution %q", playerName(s, st), expr)
}

func (r *Room) handleSurrender(s *session.Session, args []string) {
	var username string
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}

	r.mu.Lock()
	st := r.roundState(s, username)
	if st.State != RoundPending {
		r.mu.Unlock()
		protocol.Send(s, protocol.CmdError, "Already submitted for this puzzle")
		return
	}
	st.State = RoundSurrendered
	r.mu.Unlock()

	r.log.Info("Player %s surrendered", playerName(s, st))
	protocol.Send(s, protocol.CmdSurrenderStatus, "Surrendered. Wait for the next puzzle")
	r.broadcastStats()
	r.checkRoundComplete()
}

func (r *Room) handleExit(s *session.Session, args []string) {
	if len(args) > 0 && args[0] != "" {
		s.Username = args[0]
	}
	r.log.Info("Player %s requested exit", playerName(s, nil))
	r.removeSession(s)
}

// roundState returns the player's state for this round, creating it on
// first contact. Caller holds r.mu.
func (r *Room) roundState(s *session.Session, username string) *PlayerRoundState {
	st, ok := r.players[s.ID]
	if !ok {
		st = &PlayerRoundState{State: RoundPending}
		r.players[s.ID] = st
	}
	if username != "" {
		st.Username = username
		s.Username = username
	}
	return st
}

func playerName(s *session.Session, st *PlayerRoundState) string {
	if st != nil && st.Username != "" {
		return st.Username
	}
	if s.Username != "" {
		return s.Username
	}
	return s.ID
}

// stats counts connected players and their terminal round states.
func (r *Room) stats() (total, correct, surrendered int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statsLocked()
}

func (r *Room) statsLocked() (total, correct, surrendered int) {
	total = r.sessions.ActiveCount()
	for _, st := range r.players {
		switch st.State {
		case RoundCorrect:
			correct++
		case RoundSurrendered:
			surrendered++
		}
	}
	return total, correct, surrendered
}

// broadcastStats sends the room headcount to everyone connected.
func (r *Room) broadcastStats() {
	total, correct, surrendered := r.stats()
	frame := protocol.NewMessage(protocol.CmdGameStatus,
		strconv.Itoa(total), strconv.Itoa(correct), strconv.Itoa(surrendered)).Encode()
	r.sessions.ForEachActive(func(s *session.Session) {
		s.WriteLine(frame)
	})
}

// checkRoundComplete advances the round once every connected player has
// contributed. A round never advances while any connected player is still
// PENDING; disconnected players are excluded from the count entirely.
func (r *Room) checkRoundComplete() {
	r.mu.Lock()
	active, correct, surrendered := r.statsLocked()
	if active == 0 || active > correct+surrendered {
		r.mu.Unlock()
		return
	}

	next := r.policy.nextPuzzle(r)
	r.current = next
	for _, st := range r.players {
		st.State = RoundPending
	}
	puzzleArgs := r.policy.puzzleArgs(r)
	r.mu.Unlock()

	if err := r.reporter.ReportOK(); err != nil {
		r.log.Warn("Could not report consumed puzzle: %v", err)
	}
	r.log.Info("Round complete, next puzzle: %s", next)

	frame := protocol.NewMessage(protocol.CmdNewPuzzle, puzzleArgs...).Encode()
	r.sessions.ForEachActive(func(s *session.Session) {
		s.WriteLine(frame)
	})
}

// drawSupplied takes the next puzzle from the directory's supply, falling
// back to local generation when the supply cannot deliver in time.
func (r *Room) drawSupplied() puzzle.Puzzle {
	p, err := r.supply.NextPuzzle(r.cfg.SupplyWait)
	if err != nil {
		r.log.Warn("Puzzle supply unavailable (%v), generating locally", err)
		return puzzle.Generate()
	}
	return p
}
