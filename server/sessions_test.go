package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestSessions(cfg Config) (*SessionManager, *InMemoryStore) {
	store := NewInMemoryStore()
	return NewSessionManager(cfg, store, testLogger()), store
}

func requestWithSession(id string) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: id})
	return r
}

func TestSessionCreateSetsCookie(t *testing.T) {
	cfg := DefaultConfig()
	sm, store := newTestSessions(cfg)

	w := httptest.NewRecorder()
	sess := sm.Create(w, httptest.NewRequest("GET", "/", nil), UserIdentity{Email: "a@b.com"})

	if _, ok := store.GetSession(sess.ID); !ok {
		t.Fatalf("session record not saved")
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != sessionCookieName || c.Value != sess.ID {
		t.Fatalf("cookie mismatch: %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly {
		t.Fatalf("cookie must be HttpOnly")
	}
	if c.Secure {
		t.Fatalf("dev mode must not require a secure cookie")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("dev mode should relax SameSite to Lax, got %v", c.SameSite)
	}
}

func TestSessionCreateSecureOutsideDev(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.DevMode = false
	sm, _ := newTestSessions(cfg)

	w := httptest.NewRecorder()
	sm.Create(w, httptest.NewRequest("GET", "/", nil), UserIdentity{Email: "a@b.com"})

	c := w.Result().Cookies()[0]
	if !c.Secure {
		t.Fatalf("production cookies must be Secure")
	}
	if c.SameSite != http.SameSiteStrictMode {
		t.Fatalf("production cookies must be SameSite=Strict, got %v", c.SameSite)
	}
}

func TestSessionCreateReplacesPriorSession(t *testing.T) {
	cfg := DefaultConfig()
	sm, store := newTestSessions(cfg)

	first := sm.Create(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil), UserIdentity{Email: "a@b.com"})

	second := sm.Create(httptest.NewRecorder(), requestWithSession(first.ID), UserIdentity{Email: "b@b.com"})

	if _, ok := store.GetSession(first.ID); ok {
		t.Fatalf("prior session must be removed on re-authentication")
	}
	if _, ok := store.GetSession(second.ID); !ok {
		t.Fatalf("new session missing")
	}
}

func TestSessionExpiryIsFixedAtIssuance(t *testing.T) {
	cfg := DefaultConfig()
	sm, store := newTestSessions(cfg)

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"just_issued", 0, true},
		{"one_second_before_expiry", DefaultSessionTTL - time.Second, true},
		{"one_second_after_expiry", DefaultSessionTTL + time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issued := time.Now().Add(-tt.age)
			sess := Session{
				ID:        store.NewID(),
				Identity:  UserIdentity{Email: "a@b.com"},
				IssuedAt:  issued,
				ExpiresAt: issued.Add(DefaultSessionTTL),
			}
			store.SaveSession(sess)

			got := sm.Fetch(requestWithSession(sess.ID))
			if (got != nil) != tt.want {
				t.Fatalf("authenticated at age %v: got %v want %v", tt.age, got != nil, tt.want)
			}
		})
	}
}

func TestSessionFetchRemovesExpiredRecord(t *testing.T) {
	cfg := DefaultConfig()
	sm, store := newTestSessions(cfg)

	issued := time.Now().Add(-2 * DefaultSessionTTL)
	sess := Session{
		ID:        store.NewID(),
		IssuedAt:  issued,
		ExpiresAt: issued.Add(DefaultSessionTTL),
	}
	store.SaveSession(sess)

	if got := sm.Fetch(requestWithSession(sess.ID)); got != nil {
		t.Fatalf("expired session returned")
	}
	if _, ok := store.GetSession(sess.ID); ok {
		t.Fatalf("expired session record must be deleted on fetch")
	}
}

func TestSessionFetchUnknownCookie(t *testing.T) {
	cfg := DefaultConfig()
	sm, _ := newTestSessions(cfg)

	if got := sm.Fetch(requestWithSession("no-such-session")); got != nil {
		t.Fatalf("unknown session id must yield nil")
	}
	if got := sm.Fetch(httptest.NewRequest("GET", "/", nil)); got != nil {
		t.Fatalf("missing cookie must yield nil")
	}
}

func TestSessionDestroy(t *testing.T) {
	cfg := DefaultConfig()
	sm, store := newTestSessions(cfg)

	w := httptest.NewRecorder()
	sess := sm.Create(w, httptest.NewRequest("GET", "/", nil), UserIdentity{Email: "a@b.com"})

	dw := httptest.NewRecorder()
	sm.Destroy(dw, requestWithSession(sess.ID))

	if _, ok := store.GetSession(sess.ID); ok {
		t.Fatalf("session record must be deleted")
	}

	cookies := dw.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Fatalf("destroy must clear the cookie, got %+v", cookies)
	}

	if got := sm.Fetch(requestWithSession(sess.ID)); got != nil {
		t.Fatalf("stale cookie must not authenticate after destroy")
	}
}

func TestSessionDestroyWithoutSession(t *testing.T) {
	cfg := DefaultConfig()
	sm, _ := newTestSessions(cfg)

	// Logout must be idempotent even when no session exists.
	w := httptest.NewRecorder()
	sm.Destroy(w, httptest.NewRequest("GET", "/", nil))
	if len(w.Result().Cookies()) != 1 {
		t.Fatalf("clearing cookie expected even without a session")
	}
}
