package session

import (
	"sync"
	"time"
)

// Registry is the session map of one server process. All "active versus
// disconnected" filtering happens here so round-completion math and stats
// never have to re-derive it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Put adds or replaces the session under its ID.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Get returns the session with the given ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove deletes the session and reports whether it was present. The first
// caller to remove a session owns its exit handling; later calls see false.
func (r *Registry) Remove(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// ActiveCount counts sessions that are still connected.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, s := range r.sessions {
		if s.Connected() {
			count++
		}
	}
	return count
}

// ForEachActive calls fn for every connected session. fn must not call back
// into the registry.
func (r *Registry) ForEachActive(fn func(*Session)) {
	r.mu.RLock()
	active := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Connected() {
			active = append(active, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range active {
		fn(s)
	}
}

// IdleSessions returns the sessions silent for longer than maxIdle.
func (r *Registry) IdleSessions(maxIdle time.Duration) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var idle []*Session
	for _, s := range r.sessions {
		if time.Since(s.LastActivity()) > maxIdle {
			idle = append(idle, s)
		}
	}
	return idle
}

// CloseAll closes every session. Used on server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		s.Close()
		delete(r.sessions, id)
	}
}
