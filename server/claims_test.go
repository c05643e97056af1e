package server

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizeClaimsAllPresent(t *testing.T) {
	claims := Claims{
		"auth_time": float64(1700000000),
		"acr":       "urn:mace:incommon:iap:silver",
		"amr":       []any{"pwd", "otp"},
	}

	ctx := NormalizeClaims(claims)

	want := time.UnixMilli(1700000000 * 1000).UTC()
	if !ctx.Timestamp.Equal(want) {
		t.Fatalf("timestamp: got %v want %v", ctx.Timestamp, want)
	}
	if ctx.Class != "urn:mace:incommon:iap:silver" {
		t.Fatalf("class: got %q", ctx.Class)
	}
	if !reflect.DeepEqual(ctx.Methods, []string{"pwd", "otp"}) {
		t.Fatalf("methods: got %v", ctx.Methods)
	}
}

func TestNormalizeClaimsOmitsAbsentFields(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
	}{
		{"empty", Claims{}},
		{"unrelated", Claims{"sub": "u123", "email": "a@b.com"}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NormalizeClaims(tt.claims)
			if !ctx.Timestamp.IsZero() {
				t.Fatalf("timestamp invented: %v", ctx.Timestamp)
			}
			if ctx.Class != "" {
				t.Fatalf("class invented: %q", ctx.Class)
			}
			if ctx.Methods != nil {
				t.Fatalf("methods invented: %v", ctx.Methods)
			}
		})
	}
}

func TestNormalizeClaimsPartial(t *testing.T) {
	ctx := NormalizeClaims(Claims{"acr": "basic"})
	if ctx.Class != "basic" {
		t.Fatalf("class: got %q", ctx.Class)
	}
	if !ctx.Timestamp.IsZero() || ctx.Methods != nil {
		t.Fatalf("absent fields must stay zero: %+v", ctx)
	}
}

func TestNormalizeClaimsTimestampExact(t *testing.T) {
	// Seconds-resolution auth_time scales by exactly 1000.
	ctx := NormalizeClaims(Claims{"auth_time": float64(1)})
	if got := ctx.Timestamp.UnixMilli(); got != 1000 {
		t.Fatalf("timestamp millis: got %d want 1000", got)
	}
}

func TestClaimsAccessors(t *testing.T) {
	c := Claims{"sub": "u123", "email": "a@b.com"}
	if c.Subject() != "u123" || c.Email() != "a@b.com" {
		t.Fatalf("accessor mismatch: %q %q", c.Subject(), c.Email())
	}

	var empty Claims
	if empty.Subject() != "" || empty.Email() != "" {
		t.Fatalf("nil claims must yield empty accessors")
	}
}
