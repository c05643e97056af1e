package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Flow drives the authentication state machine:
//
//	Idle -> AwaitingCallback -> Exchanging -> Validating -> Resolving
//	     -> Established | Failed
//
// Each attempt is a sequence of independent HTTP requests correlated only
// by the state value stored against the pending transaction. Terminal
// states are never reused.
type Flow struct {
	cfg      Config
	provider IdentityProvider
	store    *InMemoryStore
	sessions *SessionManager
	resolver *Resolver
	logger   *slog.Logger
}

// NewFlow wires the state machine from its collaborators.
func NewFlow(cfg Config, provider IdentityProvider, store *InMemoryStore, sessions *SessionManager, resolver *Resolver, logger *slog.Logger) *Flow {
	return &Flow{
		cfg:      cfg,
		provider: provider,
		store:    store,
		sessions: sessions,
		resolver: resolver,
		logger:   logger,
	}
}

// Start transitions Idle -> AwaitingCallback: it issues a fresh state and
// nonce, records the pending transaction, and redirects the browser to
// the IdP's authorization endpoint.
func (f *Flow) Start(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	pending := PendingAuth{
		State:     f.store.NewID(),
		Nonce:     f.store.NewID(),
		Scope:     f.cfg.Provider.Scope(),
		Flow:      FlowAwaitingCallback,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultPendingTTL),
	}
	f.store.SavePendingAuth(pending)

	redirectURL := f.provider.AuthCodeURL(pending.State, pending.Nonce)
	f.logger.Debug("authentication started", "state", pending.State, "scope", pending.Scope)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// Callback handles the IdP redirect: it verifies the state echo, maps
// IdP-reported errors, exchanges the code, and resolves the identity into
// an established session. Any returned error carries the taxonomy and
// leaves no session behind; a dropped connection mid-exchange likewise
// discards the partial token set.
func (f *Flow) Callback(w http.ResponseWriter, r *http.Request) (*Session, error) {
	q := r.URL.Query()

	if code := q.Get("error"); code != "" {
		// The IdP reported a failure instead of issuing a code. Drop the
		// pending transaction so the state cannot be replayed.
		if state := q.Get("state"); state != "" {
			f.store.ConsumePendingAuth(state)
		}
		desc := q.Get("error_description")
		if desc == "" {
			desc = "authorization request denied by identity provider"
		}
		return nil, NewAuthorizationError(desc, code, q.Get("error_uri"), 0)
	}

	state := q.Get("state")
	if state == "" {
		return nil, NewAuthorizationError("callback missing state", "invalid_request", "", 0)
	}

	pending, ok := f.store.ConsumePendingAuth(state)
	if !ok {
		return nil, NewAuthorizationError("callback state unknown, expired, or already used", "invalid_request", "", 0)
	}

	code := q.Get("code")
	if code == "" {
		return nil, NewAuthorizationError("callback missing authorization code", "invalid_request", "", 0)
	}

	pending.Flow = FlowExchanging
	tokens, err := f.provider.Exchange(r.Context(), code, pending.Nonce)
	if err != nil {
		return nil, err
	}

	pending.Flow = FlowValidating
	grantedScope := tokens.Scope
	if grantedScope == "" {
		grantedScope = pending.Scope
	}

	pending.Flow = FlowResolving
	identity, err := f.resolver.Resolve(r.Context(), tokens.Claims, grantedScope, tokens)
	if err != nil {
		return nil, err
	}

	sess := f.sessions.Create(w, r, identity)
	pending.Flow = FlowEstablished
	f.logger.Info("authentication established",
		"state", pending.State, "flow", string(pending.Flow),
		"sub", identity.Claims.Subject(), "email", identity.Email)
	return sess, nil
}

// SuccessURL is where the browser lands after an established flow.
func (f *Flow) SuccessURL() string {
	return strings.TrimSuffix(f.cfg.Server.ClientOriginURL, "/") + "/label/login/success"
}

// FailureURL is where the browser lands after a failed flow. No error
// detail is exposed to the browser; failures are logged server-side.
func (f *Flow) FailureURL() string {
	return f.cfg.Server.ClientOriginURL
}
