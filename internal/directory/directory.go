// Package directory implements the rendezvous server: players log in,
// list rooms, create rooms and get told where to connect. Room servers
// are child processes; the directory owns their lifecycle through the
// supervisor and hears from them over the control bridge.
package directory

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"github.com/go-playground/validator/v10"

	"krypto-game/internal/control"
	"krypto-game/internal/protocol"
	"krypto-game/internal/puzzle"
	"krypto-game/internal/session"
	"krypto-game/internal/supervisor"
	"krypto-game/pkg/logger"
)

// Defaults for the rendezvous listener and room cap.
const (
	DefaultPort     = 5000
	DefaultMaxRooms = 5
)

// Supply stock pushed to a freshly spawned room: the initial deal plus
// one spare for classic, the batch of five plus one spare for competitive.
const (
	classicPrefill     = 2
	competitivePrefill = 6
)

// Config carries the directory's startup parameters.
type Config struct {
	Host     string
	Port     int
	MaxRooms int
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.MaxRooms <= 0 {
		c.MaxRooms = DefaultMaxRooms
	}
}

// RoomLauncher starts room processes. The supervisor provides the real
// one; tests fabricate processes around in-memory pipes.
type RoomLauncher interface {
	CreateRoom(name, mode string, maxPlayers int) (*supervisor.RoomProcess, error)
}

// Directory is the rendezvous server process.
type Directory struct {
	cfg      Config
	log      *logger.Logger
	launcher RoomLauncher

	mux      *protocol.Mux
	sessions *session.Registry
	rooms    *RoomRegistry
	players  *PlayerRegistry
	bridge   *control.Bridge
	validate *validator.Validate

	listener net.Listener
	done     chan struct{}
	stopOnce sync.Once
}

// New builds a directory. Start must be called before it serves.
func New(cfg Config, launcher RoomLauncher, log *logger.Logger) *Directory {
	cfg.applyDefaults()

	d := &Directory{
		cfg:      cfg,
		log:      log,
		launcher: launcher,
		mux:      protocol.NewMux(log),
		sessions: session.NewRegistry(),
		rooms:    NewRoomRegistry(cfg.MaxRooms),
		players:  NewPlayerRegistry(),
		bridge:   control.NewBridge(log),
		validate: validator.New(),
		done:     make(chan struct{}),
	}
	d.bindHandlers()
	return d
}

// Start binds the listener and runs the accept and control loops.
func (d *Directory) Start() error {
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s failed: %w", addr, err)
	}
	d.listener = listener

	go d.acceptLoop()
	go d.controlLoop()

	d.log.Info("Directory listening on %s, room cap %d", listener.Addr(), d.cfg.MaxRooms)
	return nil
}

// Addr returns the bound listener address.
func (d *Directory) Addr() net.Addr {
	return d.listener.Addr()
}

// Done is closed once the directory has shut down.
func (d *Directory) Done() <-chan struct{} {
	return d.done
}

// Stop shuts the directory down and terminates every room it owns.
// Child processes go first, then the handles referencing them.
func (d *Directory) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		if d.listener != nil {
			d.listener.Close()
		}

		for _, rec := range d.rooms.DrainAll() {
			d.log.Info("Terminating room %q (pid %d)", rec.Name, rec.PID)
			rec.Proc.Terminate()
		}
		d.sessions.CloseAll()
		d.log.Info("Directory stopped")
	})
}

func (d *Directory) acceptLoop() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.done:
			default:
				d.log.Error("Accept failed: %v", err)
			}
			return
		}
		go d.handleConn(conn)
	}
}

func (d *Directory) handleConn(conn net.Conn) {
	sess := session.New(conn)
	d.sessions.Put(sess)
	d.log.Info("Player connected: %s", sess.ID)

	defer d.dropSession(sess)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if !sess.Allow() {
			sess.Touch()
			d.log.Warn("Dropping flooded message from %s", sess.ID)
			continue
		}
		d.mux.Dispatch(scanner.Text(), sess)

		select {
		case <-d.done:
			return
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		d.log.Debug("Connection %s read ended: %v", sess.ID, err)
	}
}

// dropSession cleans up one connection. A vanished transport counts as a
// logout for the username it held.
func (d *Directory) dropSession(sess *session.Session) {
	if _, ok := d.sessions.Remove(sess.ID); !ok {
		return
	}
	sess.Close()

	if rec, ok := d.players.RemoveBySession(sess.ID); ok {
		d.log.Info("Player %s logged out (%s)", rec.Username, sess.ID)
	} else {
		d.log.Info("Player disconnected: %s", sess.ID)
	}
}

// controlLoop is the single consumer of room control signals. All
// registry mutation driven by rooms happens here.
func (d *Directory) controlLoop() {
	for {
		select {
		case sig := <-d.bridge.Signals():
			d.handleSignal(sig)
		case <-d.done:
			return
		}
	}
}

func (d *Directory) handleSignal(sig control.Signal) {
	switch sig.Kind {
	case protocol.CtlOK:
		rec, ok := d.rooms.ByPID(sig.PID)
		if !ok {
			d.log.Warn("OK from unknown room pid %d", sig.PID)
			return
		}
		if err := rec.Supply.Push(puzzle.Generate()); err != nil {
			d.log.Error("Supply push to room %q failed: %v", rec.Name, err)
			return
		}
		d.log.Debug("Fresh puzzle supplied to room %q (pid %d)", rec.Name, sig.PID)

	case protocol.CmdError:
		d.log.Error("Room pid %d reported an error: %s", sig.PID, sig.Reason)
		d.purgeRoom(sig.PID)

	case protocol.CtlKillServer:
		d.log.Info("Room pid %d requested shutdown", sig.PID)
		d.purgeRoom(sig.PID)

	case protocol.CtlPlayerJoin:
		if rec, ok := d.rooms.AdjustCount(sig.PID, +1); ok {
			d.log.Debug("Room %q now has %d/%d players", rec.Name, rec.PlayerCount, rec.MaxPlayers)
		}

	case protocol.CtlPlayerExit:
		if rec, ok := d.rooms.AdjustCount(sig.PID, -1); ok {
			d.log.Debug("Room %q now has %d/%d players", rec.Name, rec.PlayerCount, rec.MaxPlayers)
		}

	default:
		d.log.Warn("Unhandled control signal %q from pid %d", sig.Kind, sig.PID)
	}
}

// purgeRoom terminates the process behind pid and forgets its record.
// There is no retry path: whatever the room's reason, it is gone.
func (d *Directory) purgeRoom(pid int) {
	rec, ok := d.rooms.RemoveByPID(pid)
	if !ok {
		d.log.Warn("Purge for unknown room pid %d", pid)
		return
	}
	rec.Proc.Terminate()
	d.log.Info("Room %q (pid %d) terminated and purged", rec.Name, pid)
}
