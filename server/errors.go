package server

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind partitions authentication failures into the three categories
// every caller must handle: internal faults, authorization-endpoint
// errors, and token-endpoint errors.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindAuthorization
	KindToken
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization_error"
	case KindToken:
		return "token_error"
	default:
		return "internal_error"
	}
}

// AuthError is the closed error type used along the authentication path.
// It is a plain data record: Kind selects the variant, Code and URI carry
// the OAuth wire attributes, Status the HTTP status the failure maps to.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Code    string
	URI     string
	Status  int
	Err     error
}

func (e *AuthError) Error() string {
	m := e.Message
	if e.Err != nil {
		var inner *AuthError
		if errors.As(e.Err, &inner) && inner.Status != 0 && inner.Code != "" {
			m += fmt.Sprintf(" (status: %d code: %s)", inner.Status, inner.Code)
		} else {
			m += " (" + e.Err.Error() + ")"
		}
	}
	return m
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewInternalError wraps a failure not attributable to the OAuth protocol
// itself, such as a transport-layer fault while calling the IdP.
func NewInternalError(message string, err error) *AuthError {
	return &AuthError{
		Kind:    KindInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// NewAuthorizationError represents a standard OAuth error reported by the
// IdP's authorization endpoint on redirect back to the callback. When no
// status is supplied it is defaulted from the error code.
func NewAuthorizationError(message, code, uri string, status int) *AuthError {
	if status == 0 {
		switch code {
		case "access_denied":
			status = http.StatusForbidden
		case "server_error":
			status = http.StatusBadGateway
		case "temporarily_unavailable":
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusInternalServerError
		}
	}
	if code == "" {
		code = "server_error"
	}
	return &AuthError{
		Kind:    KindAuthorization,
		Message: message,
		Code:    code,
		URI:     uri,
		Status:  status,
	}
}

// NewTokenError represents a failure reported by (or while calling) the
// token endpoint. See RFC 6749 section 5.2 for the code vocabulary.
func NewTokenError(message, code, uri string, status int) *AuthError {
	if code == "" {
		code = "invalid_request"
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &AuthError{
		Kind:    KindToken,
		Message: message,
		Code:    code,
		URI:     uri,
		Status:  status,
	}
}

// AsAuthError unwraps err to an *AuthError if one is in the chain.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// ErrNoUsableIdentity is returned by the resolver when no identity can be
// derived from the claims at hand. It is a policy violation, not a
// protocol error, and is reported separately from IdP failures.
var ErrNoUsableIdentity = errors.New("no usable identity derivable from claims")
