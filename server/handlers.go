package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// App bundles runtime dependencies for the HTTP service.
type App struct {
	Config   Config
	Logger   *slog.Logger
	Store    *InMemoryStore
	Sessions *SessionManager
	Provider IdentityProvider
	Resolver *Resolver
	Flow     *Flow
	Tokens   *TokenService
	JWKS     *JWKSManager
	Users    UserDirectory
}

// NewApp wires together the application state from configuration.
func NewApp(ctx context.Context, cfg Config, logger *slog.Logger) (*App, error) {
	store := NewInMemoryStore()

	jwks, err := NewJWKSManager(cfg.Keys, logger)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Sessions: NewSessionManager(cfg, store, logger),
		Tokens:   NewTokenService(cfg, jwks, logger),
		JWKS:     jwks,
		Users:    NewInMemoryDirectory(cfg.Users),
	}

	if cfg.Provider.Enabled() {
		provider, err := NewOIDCProvider(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		app.Provider = provider
		app.Resolver = NewResolver(cfg, provider, logger)
		app.Flow = NewFlow(cfg, provider, store, app.Sessions, app.Resolver, logger)
	}

	return app, nil
}

func (a *App) handleAuthenticationStart(w http.ResponseWriter, r *http.Request) {
	a.Flow.Start(w, r)
}

func (a *App) handleAuthenticationCallback(w http.ResponseWriter, r *http.Request) {
	sess, err := a.Flow.Callback(w, r)
	if err != nil {
		a.logFlowFailure(r, err)
		http.Redirect(w, r, a.Flow.FailureURL(), http.StatusFound)
		return
	}

	a.Logger.Debug("session established", "session_id", sess.ID, "expires_at", sess.ExpiresAt)
	http.Redirect(w, r, a.Flow.SuccessURL(), http.StatusFound)
}

// logFlowFailure records the failure server-side with full detail; the
// browser only ever sees a redirect to the client application's origin.
func (a *App) logFlowFailure(r *http.Request, err error) {
	reqID := RequestIDFromContext(r.Context())
	if errors.Is(err, ErrNoUsableIdentity) {
		a.Logger.Warn("authentication rejected by resolution policy", "request_id", reqID, "error", err)
		return
	}
	if ae, ok := AsAuthError(err); ok {
		a.Logger.Error("authentication failed",
			"request_id", reqID,
			"kind", ae.Kind.String(),
			"code", ae.Code,
			"status", ae.Status,
			"error", ae.Error(),
		)
		return
	}
	a.Logger.Error("authentication failed", "request_id", reqID, "error", err)
}

func (a *App) handleSignIn(w http.ResponseWriter, r *http.Request) {
	sess := a.Sessions.Fetch(r)
	if sess == nil {
		// No established session: send the browser home rather than
		// answering with an API error. Nothing is looked up.
		http.Redirect(w, r, a.Config.Server.ClientOriginURL, http.StatusFound)
		return
	}

	email := sess.Identity.Email
	user, err := a.Users.FindByEmail(r.Context(), email)
	if err != nil {
		a.Logger.Error("user lookup failed", "email", email, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if user == nil {
		if a.Config.Provider.RejectNewUsers {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		user, err = a.provisionUser(r.Context(), email)
		if err != nil {
			a.Logger.Error("user provisioning failed", "email", email, "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	token, err := a.Tokens.MintForUser(user)
	if err != nil {
		a.Logger.Error("token mint failed", "user_id", user.ID, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"id":    user.ID,
		"token": token,
		"user":  user,
	})
}

// provisionUser creates a local record for a first-time identity when new
// users are allowed.
func (a *App) provisionUser(ctx context.Context, email string) (*User, error) {
	user := &User{
		ID:    a.Store.NewID(),
		Email: email,
	}
	if dir, ok := a.Users.(*InMemoryDirectory); ok {
		dir.Add(user)
	}
	a.Logger.Info("provisioned new user", "user_id", user.ID, "email", email)
	return user, nil
}

func (a *App) handleLogoutStart(w http.ResponseWriter, r *http.Request) {
	postLogout := strings.TrimSuffix(a.Config.Server.PublicURL, "/") + "/logout/callback"
	endSession := a.Provider.EndSessionURL(postLogout)
	if endSession == "" {
		// Provider has no end-session endpoint; clear locally and go home.
		a.Sessions.Destroy(w, r)
		http.Redirect(w, r, a.Config.Server.ClientOriginURL, http.StatusFound)
		return
	}
	http.Redirect(w, r, endSession, http.StatusFound)
}

func (a *App) handleLogoutCallback(w http.ResponseWriter, r *http.Request) {
	// Cleared unconditionally: even an unvalidated end-session round-trip
	// must not leave the local session behind.
	a.Sessions.Destroy(w, r)
	http.Redirect(w, r, a.Config.Server.ClientOriginURL, http.StatusFound)
}

func (a *App) handleJWKS(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.JWKS.PublicJWKS())
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
