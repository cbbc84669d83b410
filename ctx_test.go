package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestGetClaims(t *testing.T) {
	tests := []struct {
		name     string
		setupCtx func() context.Context
		wantOK   bool
	}{
		{
			name: "should return claims when present in context",
			setupCtx: func() context.Context {
				claims := &TokenClaims{
					RegisteredClaims: jwt.RegisteredClaims{Subject: "user123"},
					UID:              "user123",
				}
				return WithClaimsContext(context.Background(), claims)
			},
			wantOK: true,
		},
		{
			name:     "should return false when no claims in context",
			setupCtx: context.Background,
			wantOK:   false,
		},
		{
			name: "should return false when context has wrong type",
			setupCtx: func() context.Context {
				return context.WithValue(context.Background(), claimsCtxKey, "not-a-claims-object")
			},
			wantOK: false,
		},
		{
			name: "should return false for nil claims",
			setupCtx: func() context.Context {
				return WithClaimsContext(context.Background(), nil)
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := GetClaims(tt.setupCtx())
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, "user123", claims.UserID())
			}
		})
	}
}

func TestSessionFromContext(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)

	session := SessionClaims{User: SessionUser{ID: "user123", Email: "user@example.com"}}
	got, ok := SessionFromContext(WithSession(context.Background(), session))
	assert.True(t, ok)
	assert.Equal(t, session, got)
}

func TestAccountInfoValidate(t *testing.T) {
	assert.NoError(t, CredentialsAccount("user-1").Validate())
	assert.NoError(t, AccountInfo{Provider: ProviderGoogle, Type: AccountTypeOAuth, ProviderAccountID: "g-1"}.Validate())
	assert.Error(t, AccountInfo{Provider: ProviderGoogle, Type: AccountTypeOAuth}.Validate())
	assert.Error(t, AccountInfo{Type: AccountTypeOAuth, ProviderAccountID: "g-1"}.Validate())
	assert.Error(t, AccountInfo{Provider: "saml", Type: "saml"}.Validate())
}
