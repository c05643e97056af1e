package server

import "time"

// FlowState names the position of an authentication attempt within the
// state machine. Terminal states are never reused; a new attempt always
// starts a fresh pending transaction.
type FlowState string

const (
	FlowIdle             FlowState = "idle"
	FlowAwaitingCallback FlowState = "awaiting_callback"
	FlowExchanging       FlowState = "exchanging"
	FlowValidating       FlowState = "validating"
	FlowResolving        FlowState = "resolving"
	FlowEstablished      FlowState = "established"
	FlowFailed           FlowState = "failed"
)

// PendingAuth tracks one in-flight authentication transaction between the
// start redirect and the IdP callback. It is keyed by State, consumed
// exactly once, and discarded afterwards.
type PendingAuth struct {
	State     string
	Nonce     string
	Scope     string
	Flow      FlowState
	CreatedAt time.Time
	ExpiresAt time.Time
}

// TokenSet bundles the result of the code exchange. It is owned by the
// in-flight attempt and never persisted beyond the transaction.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	Expiry       time.Time
	Claims       Claims
}

// UserIdentity is the resolved local identity produced by the resolver.
// Email may be empty when new users are rejected and the raw claims carry
// none; Claims always holds the verified claims the identity came from.
type UserIdentity struct {
	Email   string
	Claims  Claims
	Context AuthenticationContext
}

// Session is the short-lived server-side record established by a
// successful flow. Expiry is fixed at issuance; there is no renewal.
type Session struct {
	ID        string
	Identity  UserIdentity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// User is a local account record as returned by the user directory.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
