package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const outboundTimeout = 15 * time.Second

// IdentityProvider represents the minimal behaviour required from the
// upstream IdP.
type IdentityProvider interface {
	AuthCodeURL(state, nonce string) string
	Exchange(ctx context.Context, code, expectedNonce string) (TokenSet, error)
	UserInfo(ctx context.Context, accessToken, tokenType string) (Claims, error)
	EndSessionURL(postLogoutRedirect string) string
}

// OIDCProvider wraps the upstream IdP configuration and helpers. The
// id_token signature check is delegated to the verifier; claims handed to
// the rest of the flow are already signature-verified.
type OIDCProvider struct {
	oauthConfig      *oauth2.Config
	verifier         *oidc.IDTokenVerifier
	userinfoEndpoint string
	endSessionURL    string
	clientID         string
	httpClient       *http.Client
	logger           *slog.Logger
}

// extraEndpoints captures discovery metadata go-oidc does not surface
// directly.
type extraEndpoints struct {
	UserinfoEndpoint   string `json:"userinfo_endpoint"`
	EndSessionEndpoint string `json:"end_session_endpoint"`
}

// NewOIDCProvider initializes the provider via issuer discovery.
func NewOIDCProvider(ctx context.Context, cfg Config, logger *slog.Logger) (*OIDCProvider, error) {
	if !cfg.Provider.Enabled() {
		return nil, fmt.Errorf("issuer required")
	}

	httpClient := &http.Client{Timeout: outboundTimeout}
	ctx = oidc.ClientContext(ctx, httpClient)

	op, err := oidc.NewProvider(ctx, cfg.Provider.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover provider: %w", err)
	}

	var extra extraEndpoints
	if err := op.Claims(&extra); err != nil {
		logger.Warn("provider metadata parse", "error", err)
	}

	endpoint := op.Endpoint()
	switch cfg.Provider.TokenEndpointAuthMethod {
	case "client_secret_post":
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	case "none":
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	default:
		endpoint.AuthStyle = oauth2.AuthStyleInHeader
	}
	if cfg.Provider.ClientSecret == "" {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
		Endpoint:     endpoint,
		Scopes:       cfg.Provider.Scopes,
	}

	verifier := op.Verifier(&oidc.Config{ClientID: cfg.Provider.ClientID})

	return &OIDCProvider{
		oauthConfig:      oauthCfg,
		verifier:         verifier,
		userinfoEndpoint: extra.UserinfoEndpoint,
		endSessionURL:    extra.EndSessionEndpoint,
		clientID:         cfg.Provider.ClientID,
		httpClient:       httpClient,
		logger:           logger,
	}, nil
}

// AuthCodeURL constructs the authorization request redirect.
func (p *OIDCProvider) AuthCodeURL(state, nonce string) string {
	opts := []oauth2.AuthCodeOption{}
	if nonce != "" {
		opts = append(opts, oauth2.SetAuthURLParam("nonce", nonce))
	}
	return p.oauthConfig.AuthCodeURL(state, opts...)
}

// Exchange completes the code exchange and returns the verified token
// set. Failures map onto the error taxonomy: token-endpoint error
// responses and malformed token responses become token errors, transport
// faults become internal errors.
func (p *OIDCProvider) Exchange(ctx context.Context, code, expectedNonce string) (TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		if rErr, ok := err.(*oauth2.RetrieveError); ok {
			return TokenSet{}, tokenErrorFromResponse(rErr)
		}
		return TokenSet{}, NewInternalError("failed to obtain access token", err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return TokenSet{}, NewTokenError("id_token missing in token response", "", "", 0)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return TokenSet{}, NewTokenError(fmt.Sprintf("id_token verification failed: %v", err), "", "", 0)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return TokenSet{}, NewTokenError(fmt.Sprintf("failed to parse id_token claims: %v", err), "", "", 0)
	}

	if expectedNonce != "" {
		if nonce, ok := claims["nonce"].(string); !ok || nonce != expectedNonce {
			return TokenSet{}, NewTokenError("nonce mismatch", "", "", 0)
		}
	}

	scope, _ := tok.Extra("scope").(string)
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tokenType,
		Scope:        scope,
		Expiry:       tok.Expiry,
		Claims:       claims,
	}, nil
}

// UserInfo calls the userinfo endpoint with the access token delivered as
// a bearer header. The POST form matches what the upstream expects for
// email discovery.
func (p *OIDCProvider) UserInfo(ctx context.Context, accessToken, tokenType string) (Claims, error) {
	if p.userinfoEndpoint == "" {
		return nil, fmt.Errorf("userinfo endpoint not advertised by provider")
	}
	if tokenType == "" {
		tokenType = "Bearer"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.userinfoEndpoint, strings.NewReader(""))
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", tokenType+" "+accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call userinfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read userinfo response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var claims Claims
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, fmt.Errorf("parse userinfo response: %w", err)
	}
	return claims, nil
}

// EndSessionURL builds the IdP logout redirect. Returns "" when the
// provider does not advertise an end-session endpoint.
func (p *OIDCProvider) EndSessionURL(postLogoutRedirect string) string {
	if p.endSessionURL == "" {
		return ""
	}
	u, err := url.Parse(p.endSessionURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("client_id", p.clientID)
	if postLogoutRedirect != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirect)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// tokenErrorFromResponse extracts the OAuth error attributes from a
// non-2xx token endpoint reply, per RFC 6749 section 5.2.
func tokenErrorFromResponse(rErr *oauth2.RetrieveError) *AuthError {
	status := 0
	if rErr.Response != nil {
		status = rErr.Response.StatusCode
	}

	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		ErrorURI         string `json:"error_uri"`
	}
	message := "token endpoint returned an error"
	code := ""
	uri := ""
	if json.Unmarshal(rErr.Body, &payload) == nil && payload.Error != "" {
		code = payload.Error
		uri = payload.ErrorURI
		if payload.ErrorDescription != "" {
			message = payload.ErrorDescription
		}
	}
	return NewTokenError(message, code, uri, status)
}
