package assistant

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxRetainedRounds bounds how much history a session keeps. Older
// exchanges fall off the front.
const MaxRetainedRounds = 10

// Exchange is one completed question/answer round.
type Exchange struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Tools     []string  `json:"tools,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds the rolling conversation window for one user.
type Session struct {
	ID        string     `json:"session_id"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	Exchanges []Exchange `json:"exchanges"`
}

// History returns the most recent n exchanges, oldest first.
func (s *Session) History(n int) []Exchange {
	if n <= 0 || len(s.Exchanges) == 0 {
		return nil
	}
	if n > len(s.Exchanges) {
		n = len(s.Exchanges)
	}
	return s.Exchanges[len(s.Exchanges)-n:]
}

// SessionStore is an abstraction for session persistence.
type SessionStore interface {
	Create(role string) *Session
	Get(id string) (*Session, bool)
	Delete(id string) bool
	List() []*Session
	AddExchange(id string, ex Exchange) bool
	// ListRange returns sessions from offset with limit, ordered by recency (desc)
	ListRange(offset, limit int) []*Session
	// Clean keeps at most max sessions (by recency); returns error if failed.
	Clean(max int) error
}

// MemSessionStore manages sessions in memory.
type MemSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemSessionStore() *MemSessionStore {
	return &MemSessionStore{sessions: make(map[string]*Session)}
}

func (m *MemSessionStore) Create(role string) *Session {
	s := &Session{ID: newID(), Role: role, CreatedAt: time.Now(), Exchanges: []Exchange{}}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *MemSessionStore) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	return s, ok
}

func (m *MemSessionStore) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	return ok
}

func (m *MemSessionStore) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	// order by CreatedAt desc for convenience
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MemSessionStore) ListRange(offset, limit int) []*Session {
	list := m.List()
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(list) {
		return []*Session{}
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

func (m *MemSessionStore) Clean(max int) error {
	if max <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) <= max {
		return nil
	}
	for _, s := range out[max:] {
		delete(m.sessions, s.ID)
	}
	return nil
}

func (m *MemSessionStore) AddExchange(id string, ex Exchange) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		s.Exchanges = append(s.Exchanges, ex)
		if len(s.Exchanges) > MaxRetainedRounds {
			s.Exchanges = s.Exchanges[len(s.Exchanges)-MaxRetainedRounds:]
		}
	}
	m.mu.Unlock()
	return ok
}

func newID() string { return uuid.New().String() }
