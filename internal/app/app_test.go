package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"negociasmart/internal/gateway"
	"negociasmart/pkg/domain"
	"negociasmart/pkg/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Config{
		Store:    store.NewMemoryStore(),
		Sessions: store.NewJWTSessionStore("test-secret", time.Hour),
		Gateway:  gateway.New(nil, gateway.WithFallbackPauses(0, 0)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func registerUser(t *testing.T, a *App, email string) domain.UserProfile {
	t.Helper()
	user, token, err := a.Register(Credentials{Email: email, Password: "secret123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token == "" {
		t.Fatal("Register returned empty token")
	}
	return user
}

func createCase(t *testing.T, a *App, user domain.UserProfile) domain.Case {
	t.Helper()
	c, err := a.CreateCase(user, CreateCaseInput{
		Title:         "Revisión salarial",
		CurrentRole:   "Operador",
		CurrentSalary: 1650,
		TargetSalary:  1900,
		CurrencyCode:  "EUR",
		Achievements:  "Protocolo LOTO implantado",
	})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	return c
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	a := newTestApp(t)
	registerUser(t, a, "demo@negociasmart.com")
	_, _, err := a.Register(Credentials{Email: "demo@negociasmart.com", Password: "another1"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	a := newTestApp(t)
	registerUser(t, a, "demo@negociasmart.com")
	_, _, err := a.Login(Credentials{Email: "demo@negociasmart.com", Password: "wrongpass"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestUserByTokenRoundTrip(t *testing.T) {
	a := newTestApp(t)
	user, token, err := a.Register(Credentials{Email: "demo@negociasmart.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := a.UserByToken(token)
	if err != nil {
		t.Fatalf("UserByToken: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("resolved user = %q, want %q", got.ID, user.ID)
	}
	if _, err := a.UserByToken("not-a-token"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bogus token err = %v, want ErrUnauthorized", err)
	}
}

func TestFreeTierSecondCaseDeniedUntilUpgrade(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	createCase(t, a, user)

	_, err := a.CreateCase(user, CreateCaseInput{
		Title:         "Segundo caso",
		CurrentRole:   "Operador",
		CurrentSalary: 1650,
		TargetSalary:  1900,
		CurrencyCode:  "EUR",
	})
	if !errors.Is(err, ErrLimitReached) {
		t.Fatalf("second case err = %v, want ErrLimitReached", err)
	}

	user, err = a.Upgrade(user)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if _, err := a.CreateCase(user, CreateCaseInput{
		Title:         "Segundo caso",
		CurrentRole:   "Operador",
		CurrentSalary: 1650,
		TargetSalary:  1900,
		CurrencyCode:  "EUR",
	}); err != nil {
		t.Fatalf("post-upgrade case err = %v", err)
	}
}

func TestCreateCaseValidation(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	_, err := a.CreateCase(user, CreateCaseInput{Title: "Sin datos"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestGeneratePlanOfflineFallbackIsAttached(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	c := createCase(t, a, user)

	plan, err := a.GeneratePlan(context.Background(), user, c.ID)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if plan.AnchorAmount != 1950 {
		t.Fatalf("offline plan anchor = %v, want 1950", plan.AnchorAmount)
	}
	got, err := a.GetCase(user, c.ID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if got.Plan == nil || got.Plan.AnchorAmount != 1950 {
		t.Fatal("plan not attached to case")
	}
}

func TestGeneratePlanUnknownCase(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	_, err := a.GeneratePlan(context.Background(), user, "missing")
	if !errors.Is(err, ErrCaseNotFound) {
		t.Fatalf("err = %v, want ErrCaseNotFound", err)
	}
}

func TestStartSessionOpeningLineAndCounters(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	c := createCase(t, a, user)

	sess, opening, err := a.StartSession(user, c.ID, domain.PersonaFinanceController)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if sess.TurnCount != 0 {
		t.Fatalf("new session turn_count = %d, want 0", sess.TurnCount)
	}
	if sess.Difficulty != "hard" {
		t.Fatalf("difficulty = %q, want hard", sess.Difficulty)
	}
	if opening.Role != domain.RoleAssistant {
		t.Fatalf("opening role = %q", opening.Role)
	}
	if !strings.Contains(opening.Content, "los números no cuadran") {
		t.Fatalf("opening line = %q", opening.Content)
	}
	msgs, err := a.ListMessages(user, sess.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != opening.Content {
		t.Fatalf("transcript after start = %+v", msgs)
	}
}

func TestFreeTierSecondSessionDenied(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	c := createCase(t, a, user)

	if _, _, err := a.StartSession(user, c.ID, domain.PersonaBossPragmatic); err != nil {
		t.Fatalf("first session: %v", err)
	}
	_, _, err := a.StartSession(user, c.ID, domain.PersonaHRCold)
	if !errors.Is(err, ErrLimitReached) {
		t.Fatalf("second session err = %v, want ErrLimitReached", err)
	}
}

func TestSimulateTurnAdvancesExactlyOne(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	c := createCase(t, a, user)
	sess, _, err := a.StartSession(user, c.ID, domain.PersonaHRCold)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	reply, turns, err := a.SimulateTurn(context.Background(), user, sess.ID, "Quiero hablar de mi salario.")
	if err != nil {
		t.Fatalf("SimulateTurn: %v", err)
	}
	if turns != 1 {
		t.Fatalf("turn_count = %d, want 1", turns)
	}
	if !strings.HasPrefix(reply.Content, gateway.OfflineMarker) {
		t.Fatalf("offline reply missing marker: %q", reply.Content)
	}

	_, turns, err = a.SimulateTurn(context.Background(), user, sess.ID, "Tengo resultados que lo justifican.")
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if turns != 2 {
		t.Fatalf("turn_count = %d, want 2", turns)
	}

	// opening + 2 user + 2 assistant
	msgs, err := a.ListMessages(user, sess.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("transcript length = %d, want 5", len(msgs))
	}
}

func TestSimulateTurnEmptyContent(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	c := createCase(t, a, user)
	sess, _, _ := a.StartSession(user, c.ID, domain.PersonaHRCold)

	_, _, err := a.SimulateTurn(context.Background(), user, sess.ID, "   ")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestEndSessionLifecycleAndIdempotency(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	c := createCase(t, a, user)
	sess, _, _ := a.StartSession(user, c.ID, domain.PersonaBossEmpathic)
	if _, _, err := a.SimulateTurn(context.Background(), user, sess.ID, "Quiero plantear una subida."); err != nil {
		t.Fatalf("SimulateTurn: %v", err)
	}

	ended, score, err := a.EndSession(context.Background(), user, sess.ID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if !ended.Completed {
		t.Fatal("session not marked completed")
	}
	if ended.TurnCount != 2 {
		t.Fatalf("turn_count after farewell = %d, want 2", ended.TurnCount)
	}
	if score.TotalScore != 65 {
		t.Fatalf("offline score = %v, want 65", score.TotalScore)
	}

	// Ending again returns the stored score without another farewell.
	again, score2, err := a.EndSession(context.Background(), user, sess.ID)
	if err != nil {
		t.Fatalf("repeat EndSession: %v", err)
	}
	if again.TurnCount != 2 {
		t.Fatalf("repeat end changed turn_count to %d", again.TurnCount)
	}
	if score2.TotalScore != score.TotalScore {
		t.Fatalf("repeat end score = %v, want %v", score2.TotalScore, score.TotalScore)
	}
	msgs, _ := a.ListMessages(user, sess.ID)
	if len(msgs) != 4 { // opening, user, reply, farewell
		t.Fatalf("transcript length = %d, want 4", len(msgs))
	}

	// A completed session accepts no further turns.
	_, _, err = a.SimulateTurn(context.Background(), user, sess.ID, "¿Seguimos?")
	if !errors.Is(err, ErrSessionCompleted) {
		t.Fatalf("turn on completed session err = %v, want ErrSessionCompleted", err)
	}
}

func TestScoreRevealGatedByTier(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	c := createCase(t, a, user)
	sess, _, _ := a.StartSession(user, c.ID, domain.PersonaHRCold)
	if _, _, err := a.EndSession(context.Background(), user, sess.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	// The score exists but the free tier cannot read it.
	if _, err := a.GetScore(user, sess.ID); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("free-tier reveal err = %v, want ErrLimitReached", err)
	}
	user, err := a.Upgrade(user)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	score, err := a.GetScore(user, sess.ID)
	if err != nil {
		t.Fatalf("pro-tier reveal: %v", err)
	}
	if score.TotalScore != 65 {
		t.Fatalf("revealed score = %v, want 65", score.TotalScore)
	}
}

func TestTemplateGateByType(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	c := createCase(t, a, user)

	if _, err := a.GenerateTemplate(context.Background(), user, c.ID, domain.TemplateRaiseRequest); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("free raise_request err = %v, want ErrLimitReached", err)
	}
	tmpl, err := a.GenerateTemplate(context.Background(), user, c.ID, domain.TemplateMeetingRequest)
	if err != nil {
		t.Fatalf("free meeting_request: %v", err)
	}
	if tmpl.Subject == "" {
		t.Fatal("template subject empty")
	}
}

func TestOwnershipIsolation(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "owner@negociasmart.com")
	other := registerUser(t, a, "other@negociasmart.com")
	c := createCase(t, a, owner)
	sess, _, _ := a.StartSession(owner, c.ID, domain.PersonaHRCold)

	if _, err := a.GetCase(other, c.ID); !errors.Is(err, ErrCaseNotFound) {
		t.Fatalf("foreign case err = %v, want ErrCaseNotFound", err)
	}
	if _, err := a.ListMessages(other, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign session err = %v, want ErrSessionNotFound", err)
	}
}

func TestConcurrentTurnRejected(t *testing.T) {
	a := newTestApp(t)
	user := registerUser(t, a, "demo@negociasmart.com")
	c := createCase(t, a, user)
	sess, _, _ := a.StartSession(user, c.ID, domain.PersonaHRCold)

	if err := a.acquireSession(sess.ID); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer a.releaseSession(sess.ID)

	_, _, err := a.SimulateTurn(context.Background(), user, sess.ID, "Hola")
	if !errors.Is(err, ErrTurnInProgress) {
		t.Fatalf("busy session err = %v, want ErrTurnInProgress", err)
	}
}
