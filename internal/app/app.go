// Package app is the session lifecycle controller: it owns all store
// mutations, enforces entitlement gates, and delegates content to the
// generation gateway. Only limit/validation/not-found conditions cross
// this boundary as errors; generation failures never do.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"negociasmart/internal/entitlement"
	"negociasmart/internal/gateway"
	"negociasmart/pkg/auth"
	"negociasmart/pkg/domain"
	"negociasmart/pkg/store"
)

// Sessions always run at the original fixed difficulty label.
const defaultDifficulty = "hard"

// Config wires the controller's dependencies.
type Config struct {
	Store    store.Store
	Sessions store.SessionStore
	Gateway  *gateway.Gateway
}

// App is the lifecycle controller.
type App struct {
	store    store.Store
	sessions store.SessionStore
	gw       *gateway.Gateway
	validate *validator.Validate
	newID    func() string

	plans singleflight.Group

	mu   sync.Mutex
	busy map[string]struct{} // sessions with a generation call in flight
}

// New constructs the controller.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	return &App{
		store:    cfg.Store,
		sessions: cfg.Sessions,
		gw:       cfg.Gateway,
		validate: validator.New(),
		newID:    uuid.NewString,
		busy:     make(map[string]struct{}),
	}, nil
}

// Credentials is the register/login request payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// Register creates a fresh free-tier profile and a login token.
func (a *App) Register(creds Credentials) (domain.UserProfile, string, error) {
	if err := a.validate.Struct(creds); err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	taken, err := a.store.HasUserEmail(creds.Email)
	if err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("check email: %w", err)
	}
	if taken {
		return domain.UserProfile{}, "", ErrEmailTaken
	}
	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.UserProfile{
		ID:           a.newID(),
		Email:        creds.Email,
		PasswordHash: hash,
		Tier:         domain.TierFree,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login authenticates by email and password.
func (a *App) Login(creds Credentials) (domain.UserProfile, string, error) {
	if err := a.validate.Struct(creds); err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	user, ok, err := a.store.GetUserByEmail(creds.Email)
	if err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("load user: %w", err)
	}
	if !ok || !auth.CheckPassword(creds.Password, user.PasswordHash) {
		return domain.UserProfile{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Logout revokes a login token where the session backend supports it.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserByToken resolves a login token to its profile.
func (a *App) UserByToken(token string) (domain.UserProfile, error) {
	userID, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("resolve token: %w", err)
	}
	if !ok {
		return domain.UserProfile{}, ErrUnauthorized
	}
	user, ok, err := a.store.GetUser(userID)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return domain.UserProfile{}, ErrUnauthorized
	}
	return user, nil
}

// Upgrade flips the profile to the paid tier (mock purchase flow).
func (a *App) Upgrade(user domain.UserProfile) (domain.UserProfile, error) {
	user.Tier = domain.TierPro
	if err := a.store.SaveUser(user); err != nil {
		return domain.UserProfile{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// CreateCaseInput is the case creation payload.
type CreateCaseInput struct {
	Title           string  `json:"title" validate:"required,max=120"`
	CurrentRole     string  `json:"current_role" validate:"required,max=120"`
	CurrentSalary   float64 `json:"current_salary" validate:"required,gt=0"`
	TargetSalary    float64 `json:"target_salary" validate:"required,gt=0"`
	CurrencyCode    string  `json:"currency_code" validate:"required,len=3"`
	Achievements    string  `json:"achievements" validate:"max=4000"`
	NegotiationDate string  `json:"negotiation_date" validate:"max=40"`
}

// CreateCase validates the input, applies the free-tier case limit, and
// stores the case.
func (a *App) CreateCase(user domain.UserProfile, input CreateCaseInput) (domain.Case, error) {
	if err := a.validate.Struct(input); err != nil {
		return domain.Case{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	owned, err := a.store.CountCasesByUser(user.ID)
	if err != nil {
		return domain.Case{}, fmt.Errorf("count cases: %w", err)
	}
	if !entitlement.CanCreateCase(user, owned) {
		return domain.Case{}, ErrLimitReached
	}
	c := domain.Case{
		ID:              a.newID(),
		UserID:          user.ID,
		Title:           input.Title,
		CurrentRole:     input.CurrentRole,
		CurrentSalary:   input.CurrentSalary,
		TargetSalary:    input.TargetSalary,
		CurrencyCode:    input.CurrencyCode,
		Achievements:    input.Achievements,
		NegotiationDate: input.NegotiationDate,
		CreatedAt:       time.Now().UTC(),
	}
	if err := a.store.SaveCase(c); err != nil {
		return domain.Case{}, fmt.Errorf("save case: %w", err)
	}
	user.CasesCount = owned + 1
	if err := a.store.SaveUser(user); err != nil {
		return domain.Case{}, fmt.Errorf("update user: %w", err)
	}
	return c, nil
}

// ListCases returns the user's cases.
func (a *App) ListCases(user domain.UserProfile) ([]domain.Case, error) {
	return a.store.ListCasesByUser(user.ID)
}

// GetCase returns one of the user's cases.
func (a *App) GetCase(user domain.UserProfile, caseID string) (domain.Case, error) {
	return a.ownedCase(user, caseID)
}

// GeneratePlan generates (or regenerates) the case's negotiation plan.
// Concurrent calls for the same case share one generation.
func (a *App) GeneratePlan(ctx context.Context, user domain.UserProfile, caseID string) (domain.NegotiationPlan, error) {
	c, err := a.ownedCase(user, caseID)
	if err != nil {
		return domain.NegotiationPlan{}, err
	}
	result, err, _ := a.plans.Do(c.ID, func() (any, error) {
		plan := a.gw.GeneratePlan(ctx, c)
		if err := a.store.AttachPlan(c.ID, plan); err != nil {
			return nil, fmt.Errorf("attach plan: %w", err)
		}
		return plan, nil
	})
	if err != nil {
		return domain.NegotiationPlan{}, err
	}
	return result.(domain.NegotiationPlan), nil
}

// StartSession creates a roleplay session against a persona and appends
// the persona's opening line as the first assistant message.
func (a *App) StartSession(user domain.UserProfile, caseID string, persona domain.Persona) (domain.Session, domain.Message, error) {
	c, err := a.ownedCase(user, caseID)
	if err != nil {
		return domain.Session{}, domain.Message{}, err
	}
	if strings.TrimSpace(string(persona)) == "" {
		return domain.Session{}, domain.Message{}, fmt.Errorf("%w: persona required", ErrValidation)
	}
	prior, err := a.store.CountSessionsByCase(c.ID)
	if err != nil {
		return domain.Session{}, domain.Message{}, fmt.Errorf("count sessions: %w", err)
	}
	if !entitlement.CanStartSession(user, prior) {
		return domain.Session{}, domain.Message{}, ErrLimitReached
	}
	sess := domain.Session{
		ID:         a.newID(),
		CaseID:     c.ID,
		Persona:    persona,
		Difficulty: defaultDifficulty,
		TurnCount:  0,
		Completed:  false,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.SaveSession(sess); err != nil {
		return domain.Session{}, domain.Message{}, fmt.Errorf("save session: %w", err)
	}
	opening := domain.Message{
		ID:        a.newID(),
		SessionID: sess.ID,
		Role:      domain.RoleAssistant,
		Content:   a.gw.OpeningLine(persona),
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AppendMessage(opening); err != nil {
		return domain.Session{}, domain.Message{}, fmt.Errorf("append opening: %w", err)
	}
	return sess, opening, nil
}

// SimulateTurn appends the user's message, generates the counterpart's
// reply (or its fallback), and advances the turn count by exactly one.
func (a *App) SimulateTurn(ctx context.Context, user domain.UserProfile, sessionID, content string) (domain.Message, int, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, 0, fmt.Errorf("%w: message content required", ErrValidation)
	}
	sess, c, err := a.ownedSession(user, sessionID)
	if err != nil {
		return domain.Message{}, 0, err
	}
	if sess.Completed {
		return domain.Message{}, 0, ErrSessionCompleted
	}
	if err := a.acquireSession(sess.ID); err != nil {
		return domain.Message{}, 0, err
	}
	defer a.releaseSession(sess.ID)

	// The user's message is saved before generation so the history
	// context always includes it, even when the reply falls back.
	userMsg := domain.Message{
		ID:        a.newID(),
		SessionID: sess.ID,
		Role:      domain.RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AppendMessage(userMsg); err != nil {
		return domain.Message{}, 0, fmt.Errorf("append user message: %w", err)
	}
	history, err := a.store.ListMessages(sess.ID)
	if err != nil {
		return domain.Message{}, 0, fmt.Errorf("load history: %w", err)
	}
	reply := domain.Message{
		ID:        a.newID(),
		SessionID: sess.ID,
		Role:      domain.RoleAssistant,
		Content:   a.gw.Reply(ctx, sess, c, history, false),
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AppendMessage(reply); err != nil {
		return domain.Message{}, 0, fmt.Errorf("append reply: %w", err)
	}
	turnCount := sess.TurnCount + 1
	if err := a.store.SetSessionProgress(sess.ID, turnCount, false); err != nil {
		return domain.Message{}, 0, fmt.Errorf("update session: %w", err)
	}
	return reply, turnCount, nil
}

// EndSession requests a final in-character farewell turn, marks the
// session completed, and scores the transcript. Repeat calls on a
// completed session are idempotent and return the stored score.
func (a *App) EndSession(ctx context.Context, user domain.UserProfile, sessionID string) (domain.Session, domain.Score, error) {
	sess, c, err := a.ownedSession(user, sessionID)
	if err != nil {
		return domain.Session{}, domain.Score{}, err
	}
	if sess.Completed {
		score, ok, err := a.store.GetScore(sess.ID)
		if err != nil {
			return domain.Session{}, domain.Score{}, fmt.Errorf("load score: %w", err)
		}
		if ok {
			return sess, score, nil
		}
		// Completed but never scored; score without another farewell.
		return a.scoreCompleted(ctx, sess)
	}
	if err := a.acquireSession(sess.ID); err != nil {
		return domain.Session{}, domain.Score{}, err
	}
	defer a.releaseSession(sess.ID)

	history, err := a.store.ListMessages(sess.ID)
	if err != nil {
		return domain.Session{}, domain.Score{}, fmt.Errorf("load history: %w", err)
	}
	farewell := domain.Message{
		ID:        a.newID(),
		SessionID: sess.ID,
		Role:      domain.RoleAssistant,
		Content:   a.gw.Reply(ctx, sess, c, history, true),
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AppendMessage(farewell); err != nil {
		return domain.Session{}, domain.Score{}, fmt.Errorf("append farewell: %w", err)
	}
	sess.TurnCount++

	// Completion is unconditional and precedes scoring: a scoring
	// fallback must never leave the session active.
	sess.Completed = true
	if err := a.store.SetSessionProgress(sess.ID, sess.TurnCount, true); err != nil {
		return domain.Session{}, domain.Score{}, fmt.Errorf("complete session: %w", err)
	}
	return a.scoreCompleted(ctx, sess)
}

func (a *App) scoreCompleted(ctx context.Context, sess domain.Session) (domain.Session, domain.Score, error) {
	history, err := a.store.ListMessages(sess.ID)
	if err != nil {
		return domain.Session{}, domain.Score{}, fmt.Errorf("load history: %w", err)
	}
	score := a.gw.Score(ctx, sess, history)
	if err := a.store.SaveScore(sess.ID, score); err != nil {
		return domain.Session{}, domain.Score{}, fmt.Errorf("save score: %w", err)
	}
	return sess, score, nil
}

// GetScore reveals a session's score; free-tier users are routed to the
// upsell flow instead.
func (a *App) GetScore(user domain.UserProfile, sessionID string) (domain.Score, error) {
	sess, _, err := a.ownedSession(user, sessionID)
	if err != nil {
		return domain.Score{}, err
	}
	if !entitlement.CanRevealScore(user) {
		return domain.Score{}, ErrLimitReached
	}
	score, ok, err := a.store.GetScore(sess.ID)
	if err != nil {
		return domain.Score{}, fmt.Errorf("load score: %w", err)
	}
	if !ok {
		return domain.Score{}, ErrScoreNotFound
	}
	return score, nil
}

// ListSessions returns the case's roleplay sessions.
func (a *App) ListSessions(user domain.UserProfile, caseID string) ([]domain.Session, error) {
	c, err := a.ownedCase(user, caseID)
	if err != nil {
		return nil, err
	}
	return a.store.ListSessionsByCase(c.ID)
}

// ListMessages returns a session's transcript in chronological order.
func (a *App) ListMessages(user domain.UserProfile, sessionID string) ([]domain.Message, error) {
	sess, _, err := a.ownedSession(user, sessionID)
	if err != nil {
		return nil, err
	}
	return a.store.ListMessages(sess.ID)
}

// GenerateTemplate composes a follow-up email for the case, gated by
// template type on the free tier.
func (a *App) GenerateTemplate(ctx context.Context, user domain.UserProfile, caseID string, t domain.TemplateType) (domain.EmailTemplate, error) {
	if strings.TrimSpace(string(t)) == "" {
		return domain.EmailTemplate{}, fmt.Errorf("%w: template type required", ErrValidation)
	}
	c, err := a.ownedCase(user, caseID)
	if err != nil {
		return domain.EmailTemplate{}, err
	}
	if !entitlement.CanGenerateTemplate(user, t) {
		return domain.EmailTemplate{}, ErrLimitReached
	}
	return a.gw.Template(ctx, c, t), nil
}

func (a *App) ownedCase(user domain.UserProfile, caseID string) (domain.Case, error) {
	c, ok, err := a.store.GetCase(caseID)
	if err != nil {
		return domain.Case{}, fmt.Errorf("load case: %w", err)
	}
	if !ok || c.UserID != user.ID {
		return domain.Case{}, ErrCaseNotFound
	}
	return c, nil
}

func (a *App) ownedSession(user domain.UserProfile, sessionID string) (domain.Session, domain.Case, error) {
	sess, ok, err := a.store.GetSession(sessionID)
	if err != nil {
		return domain.Session{}, domain.Case{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return domain.Session{}, domain.Case{}, ErrSessionNotFound
	}
	c, err := a.ownedCase(user, sess.CaseID)
	if err != nil {
		return domain.Session{}, domain.Case{}, ErrSessionNotFound
	}
	return sess, c, nil
}

func (a *App) acquireSession(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, inFlight := a.busy[id]; inFlight {
		return ErrTurnInProgress
	}
	a.busy[id] = struct{}{}
	return nil
}

func (a *App) releaseSession(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.busy, id)
}
