// Package server exposes the HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"negociasmart/internal/app"
	"negociasmart/internal/util"
	"negociasmart/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
}

// Server exposes the rehearsal backend endpoints.
type Server struct {
	app *app.App
	mux *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app: cfg.App,
		mux: http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler wrapped in the shared
// middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithCORS(util.WithSecurityHeaders(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/auth/register", s.handleRegister)
	s.mux.HandleFunc("/auth/login", s.handleLogin)
	s.mux.HandleFunc("/auth/logout", s.handleLogout)
	s.mux.Handle("/auth/me", s.authenticated(s.handleMe))

	// billing
	s.mux.Handle("/billing/upgrade", s.authenticated(s.handleUpgrade))

	// cases and sessions
	s.mux.Handle("/cases", s.authenticated(s.handleCases))
	s.mux.Handle("/cases/", s.authenticated(s.handleCaseSubtree))
	s.mux.Handle("/sessions/", s.authenticated(s.handleSessionSubtree))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.UserProfile)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.app.UserByToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

// auth handlers
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req app.Credentials
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Register(req)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req app.Credentials
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	upgraded, err := s.app.Upgrade(user)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, upgraded)
}

// case handlers
func (s *Server) handleCases(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	switch r.Method {
	case http.MethodGet:
		cases, err := s.app.ListCases(user)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": cases,
			"count": len(cases),
		})
	case http.MethodPost:
		var req app.CreateCaseInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		c, err := s.app.CreateCase(user, req)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCaseSubtree(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	caseID, rest, ok := splitSubtree(r.URL.Path, "/cases/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch rest {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		c, err := s.app.GetCase(user, caseID)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case "plan":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		plan, err := s.app.GeneratePlan(r.Context(), user, caseID)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	case "templates":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var req templateRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		tmpl, err := s.app.GenerateTemplate(r.Context(), user, caseID, domain.TemplateType(req.TemplateType))
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tmpl)
	case "sessions":
		s.handleCaseSessions(w, r, user, caseID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleCaseSessions(w http.ResponseWriter, r *http.Request, user domain.UserProfile, caseID string) {
	switch r.Method {
	case http.MethodGet:
		sessions, err := s.app.ListSessions(user, caseID)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": sessions,
			"count": len(sessions),
		})
	case http.MethodPost:
		var req startSessionRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		sess, opening, err := s.app.StartSession(user, caseID, domain.Persona(req.PersonaType))
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, startSessionResponse{Session: sess, OpeningMessage: opening})
	default:
		methodNotAllowed(w)
	}
}

// session handlers
func (s *Server) handleSessionSubtree(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	sessionID, rest, ok := splitSubtree(r.URL.Path, "/sessions/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch rest {
	case "messages":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		msgs, err := s.app.ListMessages(user, sessionID)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": msgs,
			"count": len(msgs),
		})
	case "turns":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var req turnRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		reply, turnCount, err := s.app.SimulateTurn(r.Context(), user, sessionID, req.Content)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, turnResponse{Message: reply, TurnCount: turnCount})
	case "end":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		sess, score, err := s.app.EndSession(r.Context(), user, sessionID)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, endSessionResponse{Session: sess, Score: score})
	case "score":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		score, err := s.app.GetScore(user, sessionID)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, score)
	default:
		http.NotFound(w, r)
	}
}

// writeAppError maps controller errors onto HTTP statuses. Limit
// denials get 402 so clients can branch straight to the upsell screen.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrLimitReached):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{
			"error": "plan limit reached",
			"code":  "upgrade_required",
		})
	case errors.Is(err, app.ErrCaseNotFound),
		errors.Is(err, app.ErrSessionNotFound),
		errors.Is(err, app.ErrScoreNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrEmailTaken),
		errors.Is(err, app.ErrSessionCompleted),
		errors.Is(err, app.ErrTurnInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// splitSubtree extracts the id and the single trailing segment from a
// path like /cases/{id}/plan. rest is empty for /cases/{id}.
func splitSubtree(path, prefix string) (id, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path || trimmed == "" {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimSuffix(trimmed, "/"), "/", 2)
	id = parts[0]
	if id == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		rest = parts[1]
		if strings.Contains(rest, "/") {
			return "", "", false
		}
	}
	return id, rest, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type authResponse struct {
	Token string             `json:"token"`
	User  domain.UserProfile `json:"user"`
}

type templateRequest struct {
	TemplateType string `json:"template_type"`
}

type startSessionRequest struct {
	PersonaType string `json:"persona_type"`
}

type startSessionResponse struct {
	Session        domain.Session `json:"session"`
	OpeningMessage domain.Message `json:"opening_message"`
}

type turnRequest struct {
	Content string `json:"content"`
}

type turnResponse struct {
	Message   domain.Message `json:"message"`
	TurnCount int            `json:"turn_count"`
}

type endSessionResponse struct {
	Session domain.Session `json:"session"`
	Score   domain.Score   `json:"score"`
}
