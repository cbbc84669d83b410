package jwtware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfigReadsTheGateCookie(t *testing.T) {
	cfg := GetDefaultConfig(Config{SigningKey: SigningKey{Key: []byte("secret"), JWTAlg: jwt.SigningMethodHS256.Alg()}})

	assert.Equal(t, "cookie:token", cfg.TokenLookup)
	assert.Equal(t, "user", cfg.ContextKey)
	assert.Equal(t, "Bearer", cfg.AuthScheme)
	assert.NotNil(t, cfg.KeyFunc)
	assert.NotNil(t, cfg.ErrorHandler)
	assert.IsType(t, jwt.MapClaims{}, cfg.Claims())
}

func TestSigningKeyFuncPinsAlgorithm(t *testing.T) {
	kf := signingKeyFunc(SigningKey{Key: []byte("secret"), JWTAlg: jwt.SigningMethodHS256.Alg()})

	key, err := kf(&jwt.Token{Header: map[string]any{"alg": "HS256"}})
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), key)

	_, err = kf(&jwt.Token{Header: map[string]any{"alg": "HS512"}})
	assert.Error(t, err)

	_, err = kf(&jwt.Token{Header: map[string]any{}})
	assert.Error(t, err)

	unpinned := signingKeyFunc(SigningKey{Key: []byte("secret")})
	_, err = unpinned(&jwt.Token{Header: map[string]any{"alg": "HS512"}})
	assert.NoError(t, err)
}

func TestKeyfuncOptionsRefresh(t *testing.T) {
	opts := keyfuncOptions(nil)

	require.NotNil(t, opts.RefreshErrorHandler)
	assert.Equal(t, time.Hour, opts.RefreshInterval)
	assert.True(t, opts.RefreshUnknownKID)
}
