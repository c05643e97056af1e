package server

import (
	"testing"
	"time"
)

func TestNewIDUniqueness(t *testing.T) {
	store := NewInMemoryStore()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := store.NewID()
		if id == "" {
			t.Fatalf("empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	sess := Session{ID: "s1", Identity: UserIdentity{Email: "a@b.com"}}

	store.SaveSession(sess)
	got, ok := store.GetSession("s1")
	if !ok || got.Identity.Email != "a@b.com" {
		t.Fatalf("round trip failed: %+v %v", got, ok)
	}

	store.DeleteSession("s1")
	if _, ok := store.GetSession("s1"); ok {
		t.Fatalf("session survives delete")
	}
}

func TestDeleteSessionUnknownID(t *testing.T) {
	store := NewInMemoryStore()
	store.DeleteSession("never-existed") // must not panic
}

func TestPendingAuthSingleConsume(t *testing.T) {
	store := NewInMemoryStore()
	store.SavePendingAuth(PendingAuth{
		State:     "st1",
		Nonce:     "n1",
		ExpiresAt: time.Now().Add(DefaultPendingTTL),
	})

	first, ok := store.ConsumePendingAuth("st1")
	if !ok {
		t.Fatalf("first consume failed")
	}
	if first.Nonce != "n1" {
		t.Fatalf("nonce: got %q", first.Nonce)
	}

	if _, ok := store.ConsumePendingAuth("st1"); ok {
		t.Fatalf("second consume must fail")
	}
}

func TestPendingAuthExpiry(t *testing.T) {
	store := NewInMemoryStore()
	store.SavePendingAuth(PendingAuth{
		State:     "st1",
		ExpiresAt: time.Now().Add(-time.Second),
	})

	if _, ok := store.ConsumePendingAuth("st1"); ok {
		t.Fatalf("expired transaction must not be consumable")
	}
	// The expired record is gone either way.
	if _, ok := store.ConsumePendingAuth("st1"); ok {
		t.Fatalf("expired transaction must be removed")
	}
}

func TestPendingAuthUnknownState(t *testing.T) {
	store := NewInMemoryStore()
	if _, ok := store.ConsumePendingAuth("forged"); ok {
		t.Fatalf("unknown state must not be consumable")
	}
}
