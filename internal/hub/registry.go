package hub

import (
	"errors"
	"sync"
)

var (
	ErrNilSession      = errors.New("session is nil")
	ErrSessionNotFound = errors.New("session not registered")
	ErrClosed          = errors.New("hub is closed")
)

// Registry holds live sessions and the room -> sessions index.
// A single RWMutex guards both maps, so every membership snapshot is consistent.
// Rooms are deleted when their last member leaves.
type Registry struct {
	mu       sync.RWMutex
	closed   bool
	sessions map[string]*Session
	rooms    map[RoomKey]map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rooms:    make(map[RoomKey]map[string]*Session),
	}
}

// Add registers the session and joins it to the given rooms atomically.
func (r *Registry) Add(s *Session, rooms ...RoomKey) error {
	if s == nil {
		return ErrNilSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	r.sessions[s.id] = s
	for _, key := range rooms {
		r.join(s, key)
	}
	return nil
}

// Join is idempotent: joining a room twice leaves a single membership.
// Returns false if the session was already a member.
func (r *Registry) Join(s *Session, key RoomKey) (bool, error) {
	if s == nil {
		return false, ErrNilSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.id]; !ok {
		return false, ErrSessionNotFound
	}
	return r.join(s, key), nil
}

func (r *Registry) join(s *Session, key RoomKey) bool {
	if _, ok := s.rooms[key]; ok {
		return false
	}

	members, ok := r.rooms[key]
	if !ok {
		members = make(map[string]*Session)
		r.rooms[key] = members
	}
	members[s.id] = s
	s.rooms[key] = struct{}{}
	return true
}

// Leave is idempotent. Returns false if the session was not a member.
func (r *Registry) Leave(s *Session, key RoomKey) (bool, error) {
	if s == nil {
		return false, ErrNilSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.id]; !ok {
		return false, ErrSessionNotFound
	}
	return r.leave(s, key), nil
}

func (r *Registry) leave(s *Session, key RoomKey) bool {
	if _, ok := s.rooms[key]; !ok {
		return false
	}
	delete(s.rooms, key)

	if members, ok := r.rooms[key]; ok {
		delete(members, s.id)
		if len(members) == 0 {
			delete(r.rooms, key)
		}
	}
	return true
}

// Remove drops the session from every room and from the registry in one step.
// Returns the rooms it was in; false if it was already removed.
func (r *Registry) Remove(s *Session) ([]RoomKey, bool) {
	if s == nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.id]; !ok {
		return nil, false
	}

	rooms := make([]RoomKey, 0, len(s.rooms))
	for key := range s.rooms {
		rooms = append(rooms, key)
	}
	for _, key := range rooms {
		r.leave(s, key)
	}
	delete(r.sessions, s.id)

	return rooms, true
}

// Close stops accepting sessions and returns the ones still registered.
func (r *Registry) Close() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Members returns a snapshot of the sessions currently in the room.
func (r *Registry) Members(key RoomKey) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[key]
	out := make([]*Session, 0, len(members))
	for _, s := range members {
		out = append(out, s)
	}
	return out
}

// RoomsOf returns a snapshot of the rooms the session is in.
func (r *Registry) RoomsOf(s *Session) []RoomKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RoomKey, 0, len(s.rooms))
	for key := range s.rooms {
		out = append(out, key)
	}
	return out
}

func (r *Registry) IsMember(s *Session, key RoomKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := s.rooms[key]
	return ok
}

func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
