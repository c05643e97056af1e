package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// stubProvider stands in for the upstream IdP in flow and resolver tests.
type stubProvider struct {
	mu            sync.Mutex
	exchangeCalls int
	userinfoCalls int

	exchangeTokens TokenSet
	exchangeErr    error
	userinfoClaims Claims
	userinfoErr    error
	endSession     string
}

func (s *stubProvider) AuthCodeURL(state, nonce string) string {
	return fmt.Sprintf("https://idp.test/auth?state=%s&nonce=%s", state, nonce)
}

func (s *stubProvider) Exchange(ctx context.Context, code, expectedNonce string) (TokenSet, error) {
	s.mu.Lock()
	s.exchangeCalls++
	s.mu.Unlock()
	if s.exchangeErr != nil {
		return TokenSet{}, s.exchangeErr
	}
	return s.exchangeTokens, nil
}

func (s *stubProvider) UserInfo(ctx context.Context, accessToken, tokenType string) (Claims, error) {
	s.mu.Lock()
	s.userinfoCalls++
	s.mu.Unlock()
	if s.userinfoErr != nil {
		return nil, s.userinfoErr
	}
	return s.userinfoClaims, nil
}

func (s *stubProvider) EndSessionURL(postLogoutRedirect string) string {
	if s.endSession == "" {
		return ""
	}
	return s.endSession + "?post_logout_redirect_uri=" + postLogoutRedirect
}

func (s *stubProvider) exchanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchangeCalls
}

func (s *stubProvider) userinfos() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userinfoCalls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
