package store

import "negociasmart/pkg/domain"

// Store defines persistence operations for users, cases, sessions,
// messages, and scores. Implementations hold no business rules;
// callers enforce invariants.
type Store interface {
	// users
	SaveUser(domain.UserProfile) error
	GetUser(id string) (domain.UserProfile, bool, error)
	GetUserByEmail(email string) (domain.UserProfile, bool, error)
	HasUserEmail(email string) (bool, error)

	// cases
	SaveCase(domain.Case) error
	GetCase(id string) (domain.Case, bool, error)
	ListCasesByUser(userID string) ([]domain.Case, error)
	CountCasesByUser(userID string) (int, error)
	AttachPlan(caseID string, plan domain.NegotiationPlan) error

	// sessions
	SaveSession(domain.Session) error
	GetSession(id string) (domain.Session, bool, error)
	ListSessionsByCase(caseID string) ([]domain.Session, error)
	CountSessionsByCase(caseID string) (int, error)
	SetSessionProgress(id string, turnCount int, completed bool) error

	// messages
	AppendMessage(domain.Message) error
	ListMessages(sessionID string) ([]domain.Message, error)

	// scores
	SaveScore(sessionID string, score domain.Score) error
	GetScore(sessionID string) (domain.Score, bool, error)
}

// SessionStore persists login tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
