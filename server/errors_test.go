package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAuthorizationErrorStatusDefaults(t *testing.T) {
	tests := []struct {
		code       string
		wantStatus int
	}{
		{"access_denied", http.StatusForbidden},
		{"server_error", http.StatusBadGateway},
		{"temporarily_unavailable", http.StatusServiceUnavailable},
		{"invalid_request", http.StatusInternalServerError},
		{"something_else", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := NewAuthorizationError("denied", tt.code, "", 0)
			if err.Status != tt.wantStatus {
				t.Fatalf("status for %s: got %d want %d", tt.code, err.Status, tt.wantStatus)
			}
			if err.Kind != KindAuthorization {
				t.Fatalf("unexpected kind %v", err.Kind)
			}
		})
	}
}

func TestAuthorizationErrorExplicitStatusWins(t *testing.T) {
	err := NewAuthorizationError("denied", "access_denied", "", http.StatusTeapot)
	if err.Status != http.StatusTeapot {
		t.Fatalf("explicit status overridden: got %d", err.Status)
	}
}

func TestAuthorizationErrorCodeDefault(t *testing.T) {
	err := NewAuthorizationError("denied", "", "", 0)
	if err.Code != "server_error" {
		t.Fatalf("code default: got %q want server_error", err.Code)
	}
}

func TestTokenErrorDefaults(t *testing.T) {
	err := NewTokenError("exchange failed", "", "", 0)
	if err.Code != "invalid_request" {
		t.Fatalf("code default: got %q", err.Code)
	}
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("status default: got %d", err.Status)
	}
	if err.Kind != KindToken {
		t.Fatalf("unexpected kind %v", err.Kind)
	}
}

func TestInternalErrorMessageComposition(t *testing.T) {
	plain := NewInternalError("failed to obtain access token", errors.New("connection refused"))
	if got := plain.Error(); got != "failed to obtain access token (connection refused)" {
		t.Fatalf("unexpected message: %q", got)
	}

	inner := NewTokenError("bad exchange", "invalid_grant", "", 400)
	wrapped := NewInternalError("failed to obtain access token", inner)
	want := "failed to obtain access token (status: 400 code: invalid_grant)"
	if got := wrapped.Error(); got != want {
		t.Fatalf("unexpected message: got %q want %q", got, want)
	}
}

func TestAuthErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewInternalError("wrapper", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the cause")
	}

	var ae *AuthError
	if !errors.As(fmt.Errorf("outer: %w", err), &ae) {
		t.Fatalf("expected errors.As to find the AuthError")
	}
	if got, ok := AsAuthError(fmt.Errorf("outer: %w", err)); !ok || got.Kind != KindInternal {
		t.Fatalf("AsAuthError mismatch: %v %v", got, ok)
	}
}
