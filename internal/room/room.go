package room

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"krypto-game/internal/protocol"
	"krypto-game/internal/puzzle"
	"krypto-game/internal/session"
	"krypto-game/pkg/logger"
)

// Room is one game-room server instance. All round state is guarded by mu;
// connection goroutines only touch it through the handlers.
type Room struct {
	cfg      Config
	log      *logger.Logger
	supply   Supply
	reporter Reporter
	policy   modePolicy

	mux      *protocol.Mux
	sessions *session.Registry

	mu      sync.Mutex
	state   RoomState
	players map[string]*PlayerRoundState
	current puzzle.Puzzle

	listener  net.Listener
	idleTimer *time.Timer
	done      chan struct{}
	stopOnce  sync.Once
	killOnce  sync.Once
}

// New builds a room for the configured mode. Start must be called before
// the room accepts connections.
func New(cfg Config, supply Supply, reporter Reporter, log *logger.Logger) (*Room, error) {
	cfg.applyDefaults()

	var policy modePolicy
	switch cfg.Mode {
	case ModeClassic:
		policy = &classicPolicy{}
	case ModeCompetitive:
		policy = newCompetitivePolicy()
	default:
		return nil, fmt.Errorf("unknown game mode %q", cfg.Mode)
	}

	r := &Room{
		cfg:      cfg,
		log:      log,
		supply:   supply,
		reporter: reporter,
		policy:   policy,
		mux:      protocol.NewMux(log),
		sessions: session.NewRegistry(),
		state:    RoomWaiting,
		players:  make(map[string]*PlayerRoundState),
		done:     make(chan struct{}),
	}
	r.bindHandlers()
	return r, nil
}

// Start draws the initial puzzles, binds the listener, reports readiness
// and begins accepting players. Initialization failures are reported over
// the control plane before returning.
func (r *Room) Start() error {
	r.mu.Lock()
	r.policy.initialPuzzles(r)
	r.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", r.cfg.Host, r.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		r.reporter.ReportError(fmt.Sprintf("listen on %s failed: %v", addr, err))
		return fmt.Errorf("listen on %s failed: %w", addr, err)
	}
	r.listener = listener

	if err := r.reporter.ReportOK(); err != nil {
		r.log.Warn("Could not report readiness: %v", err)
	}

	r.idleTimer = time.AfterFunc(r.cfg.IdleTimeout, r.idleExpired)

	go r.acceptLoop()
	go r.sweepLoop()

	r.log.Info("Room %q (%s) listening on %s, max %d players",
		r.cfg.Name, r.cfg.Mode, listener.Addr(), r.cfg.MaxPlayers)
	return nil
}

// Addr returns the bound listener address.
func (r *Room) Addr() net.Addr {
	return r.listener.Addr()
}

// Done is closed once the room has shut down.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// State returns the room's lifecycle state.
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Stop shuts the room down: no new connections, all sessions closed.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.state = RoomTerminated
		r.mu.Unlock()

		close(r.done)
		if r.idleTimer != nil {
			r.idleTimer.Stop()
		}
		if r.listener != nil {
			r.listener.Close()
		}
		r.sessions.CloseAll()
		r.log.Info("Room %q stopped", r.cfg.Name)
	})
}

func (r *Room) acceptLoop() {
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			select {
			case <-r.done:
			default:
				r.log.Error("Accept failed: %v", err)
			}
			return
		}
		go r.handleConn(conn)
	}
}

// handleConn admits one connection and runs its read loop until the peer
// goes away. Admission and the first-connection transition happen under
// the room lock so capacity is authoritative here, whatever the
// directory's registry snapshot said.
func (r *Room) handleConn(conn net.Conn) {
	r.mu.Lock()
	if r.state == RoomTerminated || r.sessions.ActiveCount() >= r.cfg.MaxPlayers {
		r.mu.Unlock()
		fmt.Fprint(conn, protocol.NewMessage(protocol.CmdServerFull).Encode())
		conn.Close()
		r.log.Info("Rejected connection from %s: room full", conn.RemoteAddr())
		return
	}

	sess := session.New(conn)
	r.sessions.Put(sess)
	r.players[sess.ID] = &PlayerRoundState{State: RoundPending}
	if r.state == RoomWaiting {
		r.state = RoomInRound
		r.idleTimer.Stop()
	}
	puzzleArgs := r.policy.puzzleArgs(r)
	r.mu.Unlock()

	r.log.Info("Player connected: %s", sess.ID)
	if err := r.reporter.ReportPlayerJoin(); err != nil {
		r.log.Warn("Could not report player join: %v", err)
	}

	protocol.Send(sess, protocol.CmdGreeting, r.cfg.Name, r.cfg.Mode)
	protocol.Send(sess, protocol.CmdPuzzle, puzzleArgs...)
	r.broadcastStats()

	defer r.removeSession(sess)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if !sess.Allow() {
			sess.Touch()
			r.log.Warn("Dropping flooded message from %s", sess.ID)
			continue
		}
		r.mux.Dispatch(scanner.Text(), sess)

		select {
		case <-r.done:
			return
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		r.log.Debug("Connection %s read ended: %v", sess.ID, err)
	}
}

// removeSession runs the exit path for one session. The registry guards
// it: only the first caller for a given session proceeds, so an explicit
// EXIT followed by the read loop ending runs this once.
func (r *Room) removeSession(sess *session.Session) {
	if _, ok := r.sessions.Remove(sess.ID); !ok {
		return
	}
	sess.Close()

	r.mu.Lock()
	delete(r.players, sess.ID)
	remaining := r.sessions.ActiveCount()
	r.mu.Unlock()

	r.log.Info("Player disconnected: %s (%d remaining)", sess.ID, remaining)

	if remaining == 0 {
		r.mu.Lock()
		r.state = RoomEmpty
		r.mu.Unlock()
		r.killAndStop("all players left")
		return
	}

	if err := r.reporter.ReportPlayerExit(); err != nil {
		r.log.Warn("Could not report player exit: %v", err)
	}
	r.broadcastStats()
	// A departing PENDING player no longer blocks the others.
	r.checkRoundComplete()
}

// idleExpired fires when the startup idle window passes with nobody here.
func (r *Room) idleExpired() {
	if r.sessions.ActiveCount() > 0 {
		return
	}
	r.mu.Lock()
	r.state = RoomEmpty
	r.mu.Unlock()
	r.killAndStop("no players joined within the idle window")
}

// killAndStop emits exactly one KILL_SERVER and shuts down, however many
// paths race to it.
func (r *Room) killAndStop(reason string) {
	r.killOnce.Do(func() {
		r.log.Info("Requesting shutdown: %s", reason)
		if err := r.reporter.ReportKill(); err != nil {
			r.log.Warn("Could not report kill: %v", err)
		}
		r.Stop()
	})
}

// sweepLoop periodically evicts clients that have gone silent, treating
// each eviction exactly like a disconnect.
func (r *Room) sweepLoop() {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, sess := range r.sessions.IdleSessions(r.cfg.ClientTimeout) {
				r.log.Info("Evicting %s: silent for more than %s", sess.ID, r.cfg.ClientTimeout)
				r.removeSession(sess)
			}
		case <-r.done:
			return
		}
	}
}
