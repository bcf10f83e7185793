package gallery

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrInvalidID     = errors.New("invalid session id")
	ErrSessionExists = errors.New("session already connected")
	ErrNoSession     = errors.New("no such session")
)

// NewSessionID returns a fresh session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Registry tracks the connected sessions.
type Registry struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry that builds sessions from deps.
func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, sessions: map[string]*Session{}}
}

// Open creates and registers a session for id. The caller runs it and calls
// Close when the stream ends.
func (r *Registry) Open(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return nil, ErrSessionExists
	}
	s := NewSession(id, r.deps)
	r.sessions[id] = s
	return s, nil
}

// Get returns the session for id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Close unregisters s.
func (r *Registry) Close(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.id]; ok && cur == s {
		delete(r.sessions, s.id)
	}
}

// Len returns the number of connected sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
