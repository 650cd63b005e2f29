package usecase

import (
	"testing"
	"time"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
)

type sessionStoreFake struct {
	tokens map[string]bool
	next   int
}

func newSessionStoreFake() *sessionStoreFake {
	return &sessionStoreFake{tokens: map[string]bool{}}
}

func (f *sessionStoreFake) Create(time.Duration) string {
	f.next++
	token := string(rune('a' + f.next))
	f.tokens[token] = true
	return token
}

func (f *sessionStoreFake) IsAuthenticated(token string) bool { return f.tokens[token] }

func (f *sessionStoreFake) Destroy(token string) { delete(f.tokens, token) }

func TestVerifyPIN(t *testing.T) {
	cases := []struct {
		candidate string
		expected  string
		want      bool
	}{
		{"1234", "1234", true},
		{" 1234 ", "1234", true},
		{"1234", "  1234\n", true},
		{"1235", "1234", false},
		{"", "1234", false},
		{"", "", false},
		{"anything", "", false},
	}
	for _, tc := range cases {
		if got := VerifyPIN(tc.candidate, tc.expected); got != tc.want {
			t.Fatalf("VerifyPIN(%q, %q) = %v, want %v", tc.candidate, tc.expected, got, tc.want)
		}
	}
}

func TestLoginMintsSessionOnCorrectPIN(t *testing.T) {
	store := newSessionStoreFake()
	uc := NewAuthUseCase("4321", store, time.Hour)

	token, err := uc.Login("4321")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !uc.IsAuthenticated(token) {
		t.Fatalf("expected minted token to authenticate")
	}
}

func TestLoginRejectsWrongPIN(t *testing.T) {
	store := newSessionStoreFake()
	uc := NewAuthUseCase("4321", store, time.Hour)

	_, err := uc.Login("0000")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(store.tokens) != 0 {
		t.Fatalf("no session should exist after failed login")
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	store := newSessionStoreFake()
	uc := NewAuthUseCase("4321", store, time.Hour)

	token, err := uc.Login("4321")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	uc.Logout(token)
	if uc.IsAuthenticated(token) {
		t.Fatalf("expected destroyed session to be unauthenticated")
	}
}

func TestEmptyTokenNeverAuthenticates(t *testing.T) {
	uc := NewAuthUseCase("4321", newSessionStoreFake(), time.Hour)
	if uc.IsAuthenticated("") {
		t.Fatalf("empty token must not authenticate")
	}
}
