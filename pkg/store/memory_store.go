package store

import (
	"sort"
	"sync"

	"negociasmart/pkg/domain"
)

// MemoryStore keeps all state in-process for the process lifetime.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.UserProfile
	email     map[string]string // email -> user ID
	cases     map[string]domain.Case
	caseOrder []string
	sessions  map[string]domain.Session
	sessOrder []string
	messages  map[string][]domain.Message // session ID -> ordered messages
	scores    map[string]domain.Score     // session ID -> score
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.UserProfile),
		email:    make(map[string]string),
		cases:    make(map[string]domain.Case),
		sessions: make(map[string]domain.Session),
		messages: make(map[string][]domain.Message),
		scores:   make(map[string]domain.Score),
	}
}

// SaveUser registers or replaces a user profile.
func (m *MemoryStore) SaveUser(u domain.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.users[u.ID]; ok && prev.Email != u.Email {
		delete(m.email, prev.Email)
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// GetUser returns a user by ID.
func (m *MemoryStore) GetUser(id string) (domain.UserProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.UserProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.UserProfile{}, false, nil
}

// HasUserEmail checks if email is registered.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// SaveCase stores or replaces a case and tracks insertion order.
func (m *MemoryStore) SaveCase(c domain.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.cases[c.ID]; !exists {
		m.caseOrder = append(m.caseOrder, c.ID)
	}
	m.cases[c.ID] = c
	return nil
}

// GetCase retrieves a case by ID.
func (m *MemoryStore) GetCase(id string) (domain.Case, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[id]
	return c, ok, nil
}

// ListCasesByUser returns the user's cases in insertion order.
func (m *MemoryStore) ListCasesByUser(userID string) ([]domain.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Case, 0, len(m.caseOrder))
	for _, id := range m.caseOrder {
		if c, ok := m.cases[id]; ok && c.UserID == userID {
			res = append(res, c)
		}
	}
	return res, nil
}

// CountCasesByUser returns how many cases the user owns.
func (m *MemoryStore) CountCasesByUser(userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, c := range m.cases {
		if c.UserID == userID {
			count++
		}
	}
	return count, nil
}

// AttachPlan replaces the case's plan wholesale.
func (m *MemoryStore) AttachPlan(caseID string, plan domain.NegotiationPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[caseID]
	if !ok {
		return nil
	}
	c.Plan = &plan
	m.cases[caseID] = c
	return nil
}

// SaveSession stores or replaces a roleplay session.
func (m *MemoryStore) SaveSession(s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; !exists {
		m.sessOrder = append(m.sessOrder, s.ID)
	}
	m.sessions[s.ID] = s
	return nil
}

// GetSession retrieves a session by ID.
func (m *MemoryStore) GetSession(id string) (domain.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok, nil
}

// ListSessionsByCase returns sessions for a case in insertion order.
func (m *MemoryStore) ListSessionsByCase(caseID string) ([]domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Session, 0, len(m.sessOrder))
	for _, id := range m.sessOrder {
		if s, ok := m.sessions[id]; ok && s.CaseID == caseID {
			res = append(res, s)
		}
	}
	return res, nil
}

// CountSessionsByCase returns how many sessions a case has.
func (m *MemoryStore) CountSessionsByCase(caseID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.CaseID == caseID {
			count++
		}
	}
	return count, nil
}

// SetSessionProgress updates turn count and the one-way completed flag.
func (m *MemoryStore) SetSessionProgress(id string, turnCount int, completed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	s.TurnCount = turnCount
	if completed {
		s.Completed = true
	}
	m.sessions[id] = s
	return nil
}

// AppendMessage records a message in its session's transcript.
func (m *MemoryStore) AppendMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

// ListMessages returns the transcript ordered by creation time.
func (m *MemoryStore) ListMessages(sessionID string) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[sessionID]
	res := make([]domain.Message, len(msgs))
	copy(res, msgs)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

// SaveScore writes the session's score, overwriting any prior one.
func (m *MemoryStore) SaveScore(sessionID string, score domain.Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[sessionID] = score
	return nil
}

// GetScore returns the session's score when present.
func (m *MemoryStore) GetScore(sessionID string) (domain.Score, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scores[sessionID]
	return s, ok, nil
}
