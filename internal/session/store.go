package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store keeps sessions in memory keyed by id. Sessions idle for longer
// than ttl are dropped on the next access to the store.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the live session for id, or a new one when id is unknown
// or expired. created reports whether a new session was started.
func (st *Store) Get(id string) (s *Session, created bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	st.expire(now)

	if s, ok := st.sessions[id]; ok && id != "" {
		s.lastSeen = now
		return s, false
	}

	s = newSession(uuid.NewString(), now)
	st.sessions[s.ID] = s
	log.Debug().Str("session", s.ID).Msg("Started session")
	return s, true
}

// End drops a session and clears its state.
func (st *Store) End(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		s.Lock()
		s.clear()
		s.Unlock()
	}
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) expire(now time.Time) {
	if st.ttl <= 0 {
		return
	}
	for id, s := range st.sessions {
		if now.Sub(s.lastSeen) > st.ttl {
			delete(st.sessions, id)
			log.Debug().Str("session", id).Msg("Session expired")
		}
	}
}
