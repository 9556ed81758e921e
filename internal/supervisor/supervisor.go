package supervisor

import (
	"fmt"

	"krypto-game/pkg/logger"
)

// Supervisor pairs a port allocator with a spawner: one call reserves an
// endpoint and starts a room process bound to it. It is what the
// directory uses to launch rooms.
type Supervisor struct {
	alloc   *Allocator
	spawner Spawner
	log     *logger.Logger
}

func NewSupervisor(alloc *Allocator, spawner Spawner, log *logger.Logger) *Supervisor {
	return &Supervisor{alloc: alloc, spawner: spawner, log: log}
}

// CreateRoom reserves a free port and starts a room process on it.
func (s *Supervisor) CreateRoom(name, mode string, maxPlayers int) (*RoomProcess, error) {
	port, err := s.alloc.Next()
	if err != nil {
		return nil, fmt.Errorf("no port available for room %q: %w", name, err)
	}

	proc, err := s.spawner.Spawn(RoomSpec{
		Name:       name,
		Mode:       mode,
		Port:       port,
		MaxPlayers: maxPlayers,
	})
	if err != nil {
		s.log.Error("Room %q failed to start: %v", name, err)
		return nil, err
	}
	return proc, nil
}
