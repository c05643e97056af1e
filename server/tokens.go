package server

import (
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService mints the application tokens returned by the sign-in
// endpoint. Issuing the token is the only capability the authentication
// core needs; validation happens in downstream services.
type TokenService struct {
	issuer   string
	audience string
	ttl      time.Duration
	jwks     *JWKSManager
	logger   *slog.Logger
}

// NewTokenService constructs a TokenService.
func NewTokenService(cfg Config, jwks *JWKSManager, logger *slog.Logger) *TokenService {
	audience := cfg.Tokens.Audience
	if audience == "" {
		audience = cfg.Server.ClientOriginURL
	}
	return &TokenService{
		issuer:   strings.TrimSuffix(cfg.Server.PublicURL, "/"),
		audience: audience,
		ttl:      cfg.Tokens.TTL,
		jwks:     jwks,
		logger:   logger,
	}
}

// MintForUser signs an application token for the resolved local user.
func (ts *TokenService) MintForUser(user *User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   ts.issuer,
		"aud":   ts.audience,
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ts.ttl).Unix(),
	}
	return ts.jwks.Sign(claims)
}
