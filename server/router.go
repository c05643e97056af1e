package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const hstsMaxAge = 31536000

// Routes constructs the HTTP router with all authentication endpoints.
func (a *App) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(a.Logger))
	r.Use(RecoveryMiddleware(a.Logger))
	r.Use(CORSMiddleware(a.Config.Server.ClientOriginURL))
	if !a.Config.Server.DevMode {
		r.Use(SecurityHeadersMiddleware(hstsMaxAge))
	}

	r.Get("/healthz", a.handleHealthz)
	r.Get("/jwks.json", a.handleJWKS)

	if a.Flow != nil {
		r.Get("/authentication", a.handleAuthenticationStart)
		r.Get("/authentication/callback", a.handleAuthenticationCallback)
		r.Get("/signin", a.handleSignIn)
		r.Get("/logout", a.handleLogoutStart)
		r.Get("/logout/callback", a.handleLogoutCallback)
	}

	return r
}
