package session

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/gamenode/internal/engine"
)

var (
	// ErrSessionExists is returned when an id is already registered.
	ErrSessionExists = errors.New("session already exists")
	// ErrSessionRetired is returned when an id was registered once and removed.
	ErrSessionRetired = errors.New("session id already used")
	// ErrNotParticipant is returned when a name has no seat in a session.
	ErrNotParticipant = errors.New("not a participant")
)

// Registry owns the live sessions of this node, in registration order.
type Registry struct {
	sessions map[string]*Session
	order    []string
	retired  map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		retired:  make(map[string]struct{}),
	}
}

// Create builds and registers a session for eng.
func (r *Registry) Create(id string, eng engine.Engine) (*Session, error) {
	if _, ok := r.sessions[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	if _, ok := r.retired[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionRetired, id)
	}

	s, err := New(id, eng)
	if err != nil {
		return nil, err
	}
	r.sessions[id] = s
	r.order = append(r.order, id)
	return s, nil
}

// Get returns the session for id, or nil.
func (r *Registry) Get(id string) *Session {
	return r.sessions[id]
}

// Remove unregisters id. The id can never be registered again.
// It reports whether a session was removed.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	r.retired[id] = struct{}{}
	for i, sid := range r.order {
		if sid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// FindByParticipant returns the first session, in registration order, where
// name holds a seat and has not left.
func (r *Registry) FindByParticipant(name string) *Session {
	for _, id := range r.order {
		s := r.sessions[id]
		p := s.Participant(name)
		if p == nil || p.Left {
			continue
		}
		return s
	}
	return nil
}

// Sessions returns a snapshot of the live sessions in registration order.
// Callers may remove entries while ranging over the result.
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}
