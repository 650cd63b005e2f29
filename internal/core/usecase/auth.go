package usecase

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
	"github.com/AdamCJJ/jiffy-volume-app/internal/core/ports"
)

// AuthUseCase gates the whole application behind a single shared PIN. This is
// a deliberate product simplification: the threat model is keeping casual
// public access out, not multi-tenant security. There is no lockout and no
// per-user identity; a session carries only an authenticated flag.
type AuthUseCase struct {
	pin        string
	sessions   ports.SessionStore
	sessionTTL time.Duration
}

func NewAuthUseCase(pin string, sessions ports.SessionStore, sessionTTL time.Duration) *AuthUseCase {
	return &AuthUseCase{
		pin:        strings.TrimSpace(pin),
		sessions:   sessions,
		sessionTTL: sessionTTL,
	}
}

// Login verifies the candidate PIN and mints a session token on success.
func (uc *AuthUseCase) Login(pin string) (string, error) {
	if !VerifyPIN(pin, uc.pin) {
		return "", domain.WrapError(domain.ErrUnauthorized, "verify pin", errors.New("pin mismatch"))
	}
	return uc.sessions.Create(uc.sessionTTL), nil
}

// Logout destroys the session state entirely, not just the auth flag.
func (uc *AuthUseCase) Logout(token string) {
	uc.sessions.Destroy(token)
}

func (uc *AuthUseCase) IsAuthenticated(token string) bool {
	if token == "" {
		return false
	}
	return uc.sessions.IsAuthenticated(token)
}

// VerifyPIN compares candidate and expected after trimming whitespace on
// both sides.
func VerifyPIN(candidate, expected string) bool {
	candidate = strings.TrimSpace(candidate)
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) == 1
}
