package app

import "errors"

var (
	// ErrLimitReached marks an entitlement denial; callers route it to
	// the upsell flow, never to degraded content.
	ErrLimitReached = errors.New("limit reached")

	ErrValidation         = errors.New("validation failed")
	ErrCaseNotFound       = errors.New("case not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrScoreNotFound      = errors.New("score not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrSessionCompleted   = errors.New("session already completed")
	ErrTurnInProgress     = errors.New("turn already in progress")
)
