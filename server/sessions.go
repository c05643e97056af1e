package server

import (
	"log/slog"
	"net/http"
	"time"
)

const sessionCookieName = "rp_session"

// SessionManager handles cookie-backed sessions. Expiry is fixed at
// issuance time plus the configured TTL; activity does not extend it.
type SessionManager struct {
	store        SessionStore
	newID        func() string
	logger       *slog.Logger
	ttl          time.Duration
	secure       bool
	sameSite     http.SameSite
	cookieDomain string
}

// NewSessionManager constructs a session manager honouring config.
func NewSessionManager(cfg Config, store *InMemoryStore, logger *slog.Logger) *SessionManager {
	sameSite := http.SameSiteStrictMode
	if cfg.Server.DevMode {
		sameSite = http.SameSiteLaxMode
	}

	return &SessionManager{
		store:        store,
		newID:        store.NewID,
		logger:       logger,
		ttl:          cfg.Sessions.TTL,
		secure:       !cfg.Server.DevMode,
		sameSite:     sameSite,
		cookieDomain: cfg.Server.CookieDomain,
	}
}

// Create establishes a new session for the resolved identity and sets the
// cookie. Any prior session bound to the same cookie is overwritten.
func (sm *SessionManager) Create(w http.ResponseWriter, r *http.Request, identity UserIdentity) *Session {
	if prior, err := r.Cookie(sessionCookieName); err == nil && prior.Value != "" {
		sm.store.DeleteSession(prior.Value)
	}

	now := time.Now()
	sess := Session{
		ID:        sm.newID(),
		Identity:  identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(sm.ttl),
	}
	sm.store.SaveSession(sess)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Domain:   sm.cookieDomain,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: sm.sameSite,
		MaxAge:   int(sm.ttl.Seconds()),
	})

	return &sess
}

// Fetch returns the session associated with the request cookie, or nil if
// absent or expired. Expired records are removed on sight.
func (sm *SessionManager) Fetch(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, ok := sm.store.GetSession(cookie.Value)
	if !ok {
		return nil
	}
	if !sm.IsAuthenticated(&sess) {
		sm.store.DeleteSession(sess.ID)
		return nil
	}
	return &sess
}

// IsAuthenticated reports whether sess exists and has not expired.
func (sm *SessionManager) IsAuthenticated(sess *Session) bool {
	return sess != nil && time.Now().Before(sess.ExpiresAt)
}

// Destroy removes the session record and clears the cookie. The record is
// cleared unconditionally, even when the logout round-trip that led here
// could not be validated.
func (sm *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		sm.store.DeleteSession(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   sm.cookieDomain,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: sm.sameSite,
		MaxAge:   -1,
	})
}
