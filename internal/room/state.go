// Package room implements the per-room game server: one TCP listener, a
// bounded set of player sessions, and the round-synchronization state
// machine that decides when a puzzle is done and the next one goes out.
// Classic and competitive rooms share the state machine and differ only in
// puzzle acquisition and scoring.
package room

import (
	"time"

	"krypto-game/internal/puzzle"
)

// GameMode constants
const (
	ModeClassic     = "classic"
	ModeCompetitive = "competitive"
)

type RoomState string

// Room lifecycle states
const (
	RoomWaiting    RoomState = "WAITING_FOR_PLAYERS"
	RoomInRound    RoomState = "IN_ROUND"
	RoomEmpty      RoomState = "EMPTY"
	RoomTerminated RoomState = "TERMINATED"
)

type RoundState string

// Per-player states within one round. CORRECT and SURRENDERED are terminal
// until the next puzzle resets everyone to PENDING.
const (
	RoundPending     RoundState = "PENDING"
	RoundCorrect     RoundState = "CORRECT"
	RoundSurrendered RoundState = "SURRENDERED"
)

// PlayerRoundState tracks one client's standing in the current round,
// keyed by session id and scoped to this room only.
type PlayerRoundState struct {
	Username string
	State    RoundState
}

// Timing defaults
const (
	DefaultIdleTimeout   = 60 * time.Second
	DefaultSweepInterval = 30 * time.Second
	DefaultClientTimeout = 120 * time.Second
	DefaultSupplyWait    = 2 * time.Second

	competitiveBatchSize    = 5
	competitiveRoundSeconds = 60
)

// Config carries the room's startup parameters, normally filled from the
// flags the directory passes when spawning the process.
type Config struct {
	Name       string
	Mode       string
	Host       string
	Port       int
	MaxPlayers int

	IdleTimeout   time.Duration
	SweepInterval time.Duration
	ClientTimeout time.Duration
	SupplyWait    time.Duration
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 4
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.ClientTimeout <= 0 {
		c.ClientTimeout = DefaultClientTimeout
	}
	if c.SupplyWait <= 0 {
		c.SupplyWait = DefaultSupplyWait
	}
}

// Supply is where the room draws puzzles from. The control link provides
// the real one, backed by the directory.
type Supply interface {
	NextPuzzle(wait time.Duration) (puzzle.Puzzle, error)
}

// Reporter carries the room's control-plane notifications back to the
// directory. The control link provides the real one.
type Reporter interface {
	ReportOK() error
	ReportError(reason string) error
	ReportKill() error
	ReportPlayerJoin() error
	ReportPlayerExit() error
}
