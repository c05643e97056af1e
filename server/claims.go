package server

import "time"

// Claims is the raw key/value payload extracted from a verified id_token
// or a userinfo response.
type Claims map[string]any

// Subject returns the sub claim if present.
func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

// Email returns the email claim if present.
func (c Claims) Email() string {
	e, _ := c["email"].(string)
	return e
}

// AuthenticationContext is a read-only projection of the claims that
// describe how the user authenticated. Fields absent from the claims stay
// at their zero value and are never defaulted.
type AuthenticationContext struct {
	Timestamp time.Time `json:"timestamp,omitempty"`
	Class     string    `json:"class,omitempty"`
	Methods   []string  `json:"methods,omitempty"`
}

// NormalizeClaims maps raw claims to an AuthenticationContext. Pure and
// total: there are no failure modes, absent fields are simply omitted.
func NormalizeClaims(claims Claims) AuthenticationContext {
	var ctx AuthenticationContext
	if t, ok := claimSeconds(claims["auth_time"]); ok {
		ctx.Timestamp = time.UnixMilli(t * 1000).UTC()
	}
	if acr, ok := claims["acr"].(string); ok && acr != "" {
		ctx.Class = acr
	}
	if amr, ok := claims["amr"]; ok {
		ctx.Methods = stringSlice(amr)
	}
	return ctx
}

// claimSeconds accepts the numeric encodings JSON decoding can produce
// for auth_time.
func claimSeconds(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		if len(vals) == 0 {
			return nil
		}
		out := make([]string, len(vals))
		copy(out, vals)
		return out
	case []any:
		var out []string
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
