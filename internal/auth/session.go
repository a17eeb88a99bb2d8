package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sespe/emendas-bi/internal/filter"
)

// Session is the per-user interactive state: the authenticated flag, who
// is logged in, and the filter chain their dashboard is showing. It lives
// only for the duration of the interactive session.
//
// Requests sharing a session cookie run concurrently, so every read or
// write of the mutable fields happens under the session lock. Handlers
// hold it from the first field access through the response write.
type Session struct {
	mu sync.Mutex

	ID            string
	Authenticated bool
	Username      string
	UserInfo      *UserInfo
	Chain         *filter.Chain
	CreatedAt     time.Time
}

// Lock acquires the session lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Sessions is an in-memory session registry, safe for concurrent use.
// Sessions are lost on restart, which simply forces a new login.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// Create registers a fresh unauthenticated session and returns it.
func (s *Sessions) Create() *Session {
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session for id, or nil when it does not exist.
func (s *Sessions) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Login marks the session authenticated and attaches the user's info.
func (s *Sessions) Login(sess *Session, username string, info *UserInfo) {
	sess.Lock()
	defer sess.Unlock()
	sess.Authenticated = true
	sess.Username = username
	sess.UserInfo = info
}

// Logout clears the authenticated state and drops the session's filter
// chain so the next login starts from defaults.
func (s *Sessions) Logout(sess *Session) {
	sess.Lock()
	defer sess.Unlock()
	sess.Authenticated = false
	sess.Username = ""
	sess.UserInfo = nil
	sess.Chain = nil
}
