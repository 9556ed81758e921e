package directory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"krypto-game/internal/control"
	"krypto-game/internal/protocol"
	"krypto-game/internal/puzzle"
	"krypto-game/internal/room"
	"krypto-game/internal/session"
)

// Request shapes validated before any handler acts. The 0x7C exclusion
// keeps the pipe delimiter out of names that travel inside frames.
type loginRequest struct {
	Username string `validate:"required,min=3,max=20,excludesall=0x7C"`
}

type createRoomRequest struct {
	Name       string `validate:"required,min=3,max=30,excludesall=0x7C"`
	Mode       string `validate:"required,oneof=classic competitive"`
	MaxPlayers int    `validate:"min=1,max=8"`
}

func (d *Directory) bindHandlers() {
	d.mux.Handle(protocol.CmdLogin, d.handleLogin)
	d.mux.Handle(protocol.CmdListRooms, d.handleListRooms)
	d.mux.Handle(protocol.CmdChooseRoom, d.handleChooseRoom)
	d.mux.Handle(protocol.CmdCreateRoom, d.handleCreateRoom)
	d.mux.Handle(protocol.CmdLogout, d.handleLogout)
}

func (d *Directory) handleLogin(s *session.Session, args []string) {
	req := loginRequest{}
	if len(args) > 0 {
		req.Username = strings.TrimSpace(args[0])
	}

	if err := d.validate.Struct(req); err != nil {
		protocol.Send(s, protocol.CmdLoginFail, "Invalid username format")
		return
	}

	rec := PlayerRecord{ID: uuid.NewString(), Username: req.Username, SessionID: s.ID}
	if err := d.players.Add(rec); err != nil {
		protocol.Send(s, protocol.CmdLoginFail, "Username already taken")
		return
	}

	s.Username = req.Username
	d.log.Info("Player logged in: %s (%s)", req.Username, s.ID)
	protocol.Send(s, protocol.CmdLoginSuccess)
}

func (d *Directory) handleListRooms(s *session.Session, args []string) {
	rooms := d.rooms.List()
	if len(rooms) == 0 {
		protocol.Send(s, protocol.CmdRoomList, "No rooms available")
		return
	}

	entries := make([]string, 0, len(rooms))
	for _, rec := range rooms {
		entries = append(entries, fmt.Sprintf("ID: %s, Name: %s, Mode: %s, Players: %d/%d",
			rec.ID, rec.Name, rec.Mode, rec.PlayerCount, rec.MaxPlayers))
	}
	protocol.Send(s, protocol.CmdRoomList, entries...)
}

func (d *Directory) handleChooseRoom(s *session.Session, args []string) {
	var id string
	if len(args) > 0 {
		id = strings.TrimSpace(args[0])
	}

	rec, ok := d.rooms.Get(id)
	if !ok {
		protocol.Send(s, protocol.CmdJoinFail, "Room not found or no longer available")
		return
	}
	// Best-effort snapshot; the room re-checks on connect.
	if rec.PlayerCount >= rec.MaxPlayers {
		protocol.Send(s, protocol.CmdJoinFail, "Room is full")
		return
	}

	d.log.Info("Player %s joining room %s (%s)", playerLabel(s), rec.ID, rec.Name)
	protocol.Send(s, protocol.CmdJoinSuccess,
		rec.Name, rec.Host, strconv.Itoa(rec.Port), rec.Mode)
}

func (d *Directory) handleCreateRoom(s *session.Session, args []string) {
	req := createRoomRequest{MaxPlayers: 4}
	if len(args) > 0 {
		req.Name = strings.TrimSpace(args[0])
	}
	if len(args) > 1 {
		req.Mode = strings.ToLower(strings.TrimSpace(args[1]))
	}
	if len(args) > 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(args[2])); err == nil {
			req.MaxPlayers = n
		}
	}

	if err := d.validate.Struct(req); err != nil {
		protocol.Send(s, protocol.CmdCreateFail, createFailReason(err))
		return
	}

	// Cheap pre-check so a full registry never spawns a process at all.
	if d.rooms.Len() >= d.cfg.MaxRooms {
		protocol.Send(s, protocol.CmdCreateFail, "Maximum number of rooms reached")
		return
	}

	proc, err := d.launcher.CreateRoom(req.Name, req.Mode, req.MaxPlayers)
	if err != nil {
		d.log.Error("Room spawn failed: %v", err)
		protocol.Send(s, protocol.CmdCreateFail, "Error starting room process")
		return
	}

	rec := &RoomRecord{
		ID:         shortID(),
		PID:        proc.PID,
		Host:       d.cfg.Host,
		Port:       proc.Port,
		Name:       req.Name,
		Mode:       req.Mode,
		MaxPlayers: req.MaxPlayers,
		Proc:       proc,
		Supply:     control.NewSupplyWriter(proc.Supply),
	}

	for attempt := 0; ; attempt++ {
		err := d.rooms.Add(rec)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateRoom) && attempt < 3 {
			rec.ID = shortID()
			continue
		}
		proc.Terminate()
		reason := "Error starting room process"
		if errors.Is(err, ErrRoomCap) {
			reason = "Maximum number of rooms reached"
		}
		protocol.Send(s, protocol.CmdCreateFail, reason)
		return
	}

	d.prefillSupply(rec)
	d.bridge.Attach(proc.PID, proc.Control)

	d.log.Info("Created room %s: %q (%s) on port %d, pid %d",
		rec.ID, rec.Name, rec.Mode, rec.Port, rec.PID)
	protocol.Send(s, protocol.CmdCreateSuccess, rec.ID)
}

func (d *Directory) handleLogout(s *session.Session, args []string) {
	if rec, ok := d.players.RemoveBySession(s.ID); ok {
		d.log.Info("Player %s logged out", rec.Username)
	}
	// No reply; the client is disconnecting.
	s.Close()
}

// prefillSupply stocks a new room's pipe so its first rounds never wait.
func (d *Directory) prefillSupply(rec *RoomRecord) {
	count := classicPrefill
	if rec.Mode == room.ModeCompetitive {
		count = competitivePrefill
	}
	for i := 0; i < count; i++ {
		if err := rec.Supply.Push(puzzle.Generate()); err != nil {
			d.log.Error("Prefilling room %q failed: %v", rec.Name, err)
			return
		}
	}
}

// createFailReason maps the first failed validation to the reply text.
func createFailReason(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].StructField() {
		case "Name":
			return "Invalid room name (minimum 3 characters)"
		case "Mode":
			return "Invalid game mode (must be 'classic' or 'competitive')"
		case "MaxPlayers":
			return "Invalid max players (1-8)"
		}
	}
	return "Invalid room settings"
}

func playerLabel(s *session.Session) string {
	if s.Username != "" {
		return s.Username
	}
	return s.ID
}

func shortID() string {
	return uuid.NewString()[:4]
}
