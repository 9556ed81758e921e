package directory

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"krypto-game/internal/control"
	"krypto-game/internal/supervisor"
)

var (
	ErrRoomCap       = errors.New("maximum number of rooms reached")
	ErrDuplicateRoom = errors.New("room id already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

// RoomRecord is the directory's view of one live room process. PlayerCount
// follows the room's PLAYER_JOIN/PLAYER_EXIT signals and is best-effort;
// the room itself re-checks capacity on connect.
type RoomRecord struct {
	ID          string
	PID         int
	Host        string
	Port        int
	Name        string
	Mode        string
	PlayerCount int
	MaxPlayers  int

	Proc   *supervisor.RoomProcess
	Supply *control.SupplyWriter
}

// RoomRegistry holds the live rooms, capped at a maximum, with lookups by
// room id and by process id.
type RoomRegistry struct {
	mu    sync.RWMutex
	cap   int
	rooms map[string]*RoomRecord
	byPID map[int]string
}

func NewRoomRegistry(cap int) *RoomRegistry {
	return &RoomRegistry{
		cap:   cap,
		rooms: make(map[string]*RoomRecord),
		byPID: make(map[int]string),
	}
}

// Add registers a room. The capacity check here is the authoritative one;
// handlers may pre-check Len to fail before spawning.
func (r *RoomRegistry) Add(rec *RoomRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.rooms) >= r.cap {
		return ErrRoomCap
	}
	if _, exists := r.rooms[rec.ID]; exists {
		return ErrDuplicateRoom
	}
	r.rooms[rec.ID] = rec
	r.byPID[rec.PID] = rec.ID
	return nil
}

// Get returns a snapshot of the room with the given id.
func (r *RoomRegistry) Get(id string) (RoomRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.rooms[id]
	if !ok {
		return RoomRecord{}, false
	}
	return *rec, true
}

// ByPID returns a snapshot of the room owned by the given process id.
func (r *RoomRegistry) ByPID(pid int) (RoomRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPID[pid]
	if !ok {
		return RoomRecord{}, false
	}
	return *r.rooms[id], true
}

// RemoveByPID unregisters the room owned by pid and returns its record.
func (r *RoomRegistry) RemoveByPID(pid int) (RoomRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPID[pid]
	if !ok {
		return RoomRecord{}, false
	}
	rec := *r.rooms[id]
	delete(r.rooms, id)
	delete(r.byPID, pid)
	return rec, true
}

// AdjustCount applies a player join/exit delta to the room owned by pid,
// clamped to [0, MaxPlayers].
func (r *RoomRegistry) AdjustCount(pid, delta int) (RoomRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPID[pid]
	if !ok {
		return RoomRecord{}, false
	}
	rec := r.rooms[id]
	rec.PlayerCount += delta
	if rec.PlayerCount < 0 {
		rec.PlayerCount = 0
	}
	if rec.PlayerCount > rec.MaxPlayers {
		rec.PlayerCount = rec.MaxPlayers
	}
	return *rec, true
}

// List returns snapshots of all rooms, sorted by name then id.
func (r *RoomRegistry) List() []RoomRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RoomRecord, 0, len(r.rooms))
	for _, rec := range r.rooms {
		out = append(out, *rec)
	}
	slices.SortFunc(out, func(a, b RoomRecord) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// DrainAll unregisters and returns every room, for shutdown.
func (r *RoomRegistry) DrainAll() []RoomRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RoomRecord, 0, len(r.rooms))
	for id, rec := range r.rooms {
		out = append(out, *rec)
		delete(r.rooms, id)
	}
	for pid := range r.byPID {
		delete(r.byPID, pid)
	}
	return out
}

func (r *RoomRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// PlayerRecord tracks one logged-in player.
type PlayerRecord struct {
	ID        string
	Username  string
	SessionID string
}

// PlayerRegistry enforces unique usernames across the directory.
type PlayerRegistry struct {
	mu        sync.RWMutex
	byName    map[string]PlayerRecord
	bySession map[string]string
}

func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{
		byName:    make(map[string]PlayerRecord),
		bySession: make(map[string]string),
	}
}

// Add registers a player. A session logging in again under a new name
// releases its previous one.
func (p *PlayerRegistry) Add(rec PlayerRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, taken := p.byName[rec.Username]; taken {
		if existing.SessionID == rec.SessionID {
			return nil
		}
		return ErrUsernameTaken
	}
	if prev, ok := p.bySession[rec.SessionID]; ok {
		delete(p.byName, prev)
	}
	p.byName[rec.Username] = rec
	p.bySession[rec.SessionID] = rec.Username
	return nil
}

// RemoveBySession drops the player owned by the given session, if any.
func (p *PlayerRegistry) RemoveBySession(sessionID string) (PlayerRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name, ok := p.bySession[sessionID]
	if !ok {
		return PlayerRecord{}, false
	}
	rec := p.byName[name]
	delete(p.byName, name)
	delete(p.bySession, sessionID)
	return rec, true
}

// Has reports whether the username is logged in.
func (p *PlayerRegistry) Has(username string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byName[username]
	return ok
}

func (p *PlayerRegistry) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byName)
}
