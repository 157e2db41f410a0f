// Package registry tracks chat sessions. Each session owns its connected
// servers, its conversation history, and the set of servers it has already
// been offered, so recommendations and connections never leak between
// concurrent conversations.
package registry

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/toolscout-ai/toolscout/internal/logging"
)

// Registry is the in-memory session table.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create starts a new session with a fresh ULID.
func (r *Registry) Create() *Session {
	sess := newSession(ulid.Make().String())

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	log := logging.Component("registry")
	log.Debug().Str("session", sess.ID).Msg("session created")
	return sess
}

// Get looks up a session by ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// GetOrCreate returns the session with the given ID, creating it if missing.
// Used by the CLI chat, which names its own session.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		return sess
	}
	sess := newSession(id)
	r.sessions[id] = sess
	return sess
}

// Remove drops a session and closes its connections.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		sess.Close()
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close tears down every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
