// Package supervisor launches and reaps room server processes for the
// directory. Each room is its own OS process wired to the directory by
// its standard pipes: stdin carries the puzzle supply in, stdout carries
// control signals back.
package supervisor

import (
	"errors"
	"fmt"
	"net"
	"sync"
)

// Port probing defaults. Rooms walk upward from the base port.
const (
	DefaultBasePort     = 5001
	DefaultPortAttempts = 100
)

// ErrNoFreePort is returned when every probed candidate port is taken.
var ErrNoFreePort = errors.New("no free port found")

// FindFreePort probes candidate ports by binding them, starting at base.
// The winning listener is closed again before the port is handed out, so
// a short window remains in which another process can steal it; a room
// that loses that race reports ERROR and is purged like any other failure.
func FindFreePort(host string, base, attempts int) (int, error) {
	for i := 0; i < attempts; i++ {
		port := base + i
		l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
		if err != nil {
			continue
		}
		l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("%w after %d attempts from %d", ErrNoFreePort, attempts, base)
}

// Allocator hands out listen ports for new rooms, continuing upward from
// the last grant so terminated rooms' ports rest before reuse.
type Allocator struct {
	mu   sync.Mutex
	host string
	next int
}

// NewAllocator starts allocating at base on host.
func NewAllocator(host string, base int) *Allocator {
	if base <= 0 {
		base = DefaultBasePort
	}
	return &Allocator{host: host, next: base}
}

// Next reserves the next free port.
func (a *Allocator) Next() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	port, err := FindFreePort(a.host, a.next, DefaultPortAttempts)
	if err != nil {
		return 0, err
	}
	a.next = port + 1
	return port, nil
}
