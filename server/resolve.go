package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Resolver applies the user-resolution policy: it maps verified claims,
// the granted scope, and the token set onto a local identity, or rejects
// the attempt. It is the only producer of UserIdentity values.
type Resolver struct {
	provider          IdentityProvider
	rejectNewUsers    bool
	placeholderDomain string
	logger            *slog.Logger
}

// NewResolver constructs the resolver from configuration.
func NewResolver(cfg Config, provider IdentityProvider, logger *slog.Logger) *Resolver {
	return &Resolver{
		provider:          provider,
		rejectNewUsers:    cfg.Provider.RejectNewUsers,
		placeholderDomain: cfg.PlaceholderDomain(),
		logger:            logger,
	}
}

// Resolve derives the local identity for the authenticated subject.
//
// When new users are rejected the identity is the claims as-is: no email
// derivation happens here, and the sign-in endpoint independently denies
// unknown emails. Otherwise the email comes from the claims (when the
// email scope was granted), from the userinfo endpoint, or is synthesized
// deterministically from the subject. A userinfo failure is tolerated:
// the attempt continues on the claims already in hand rather than failing
// a user who is merely missing a discoverable email.
func (rs *Resolver) Resolve(ctx context.Context, claims Claims, scope string, tokens TokenSet) (UserIdentity, error) {
	authCtx := NormalizeClaims(claims)

	if rs.rejectNewUsers {
		return UserIdentity{
			Email:   claims.Email(),
			Claims:  claims,
			Context: authCtx,
		}, nil
	}

	emailInScope := scopeContains(scope, "email")
	if emailInScope && claims.Email() != "" {
		return UserIdentity{
			Email:   claims.Email(),
			Claims:  claims,
			Context: authCtx,
		}, nil
	}

	if tokens.AccessToken != "" {
		info, err := rs.provider.UserInfo(ctx, tokens.AccessToken, tokens.TokenType)
		if err != nil {
			rs.logger.Warn("userinfo fallback failed, continuing with id_token claims",
				"sub", claims.Subject(), "error", err)
		} else if info.Email() != "" {
			return UserIdentity{
				Email:   info.Email(),
				Claims:  info,
				Context: authCtx,
			}, nil
		}
	}

	if !emailInScope && claims.Subject() != "" {
		return UserIdentity{
			Email:   fmt.Sprintf("%s@%s", claims.Subject(), rs.placeholderDomain),
			Claims:  claims,
			Context: authCtx,
		}, nil
	}

	return UserIdentity{}, fmt.Errorf("resolve identity for sub %q: %w", claims.Subject(), ErrNoUsableIdentity)
}

func scopeContains(scope, value string) bool {
	for _, s := range strings.Fields(scope) {
		if s == value {
			return true
		}
	}
	return false
}
