package seedset

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	seterrors "github.com/setexpand/setexpand/internal/errors"
)

// Session owns one seed set. All access to the seed set goes through Do,
// which serializes operations on the same session.
type Session struct {
	ID string

	mu         sync.Mutex
	seed       *SeedSet
	lastAccess atomic.Int64 // unix nanos, readable without mu
	now        func() time.Time
}

// Do runs fn with exclusive access to the session's seed set.
func (s *Session) Do(fn func(*SeedSet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	defer s.touch()
	return fn(s.seed)
}

func (s *Session) touch() {
	s.lastAccess.Store(s.now().UnixNano())
}

// idleSince never takes mu, so sweeping does not wait on a running operation.
func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}

// SessionStore maps session ids to sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	now      func() time.Time
}

// NewSessionStore creates an empty store. New seed sets use opts.
func NewSessionStore(opts Options) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// Create registers a session holding an empty seed set.
func (st *SessionStore) Create() *Session {
	sess := &Session{
		ID:   uuid.New().String(),
		seed: New(st.opts),
		now:  st.now,
	}
	sess.touch()

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the session with the given id.
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, seterrors.NewSessionNotFound(id)
	}
	return sess, nil
}

// Delete removes a session and reports whether it existed.
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than idle and returns how many were
// removed.
func (st *SessionStore) Sweep(idle time.Duration) int {
	cutoff := st.now().Add(-idle)

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, sess := range st.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
