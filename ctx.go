package auth

import (
	"context"
)

var claimsCtxKey = &contextKey{"claims"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the token claims in the given context
func WithClaimsContext(r context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the token claims from the standard context
func GetClaims(ctx context.Context) (*TokenClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*TokenClaims)
	return raw, ok && raw != nil
}

// WithSession sets the session in the given context
func WithSession(r context.Context, session SessionClaims) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext extracts the session from the standard context
func SessionFromContext(ctx context.Context) (SessionClaims, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(SessionClaims)
	return raw, ok
}
