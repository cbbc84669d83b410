package google

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-signin/social"
)

func TestProviderAuthCodeURL(t *testing.T) {
	provider := New(Config{
		ClientID:    "client-id",
		CallbackURL: "https://example.com/api/auth/callback/google",
	})

	authURL := provider.AuthCodeURL("state-token", "verifier-value")

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", parsed.Host)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://example.com/api/auth/callback/google", query.Get("redirect_uri"))
	assert.Equal(t, "state-token", query.Get("state"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "select_account", query.Get("prompt"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.NotEmpty(t, query.Get("code_challenge"))
	assert.Equal(t, "openid email profile", query.Get("scope"))
}

func TestProviderExchangeAndUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			values, err := url.ParseQuery(string(body))
			assert.NoError(t, err)

			assert.Equal(t, "authorization_code", values.Get("grant_type"))
			assert.Equal(t, "client-id", values.Get("client_id"))
			assert.Equal(t, "client-secret", values.Get("client_secret"))
			assert.Equal(t, "auth-code", values.Get("code"))
			assert.Equal(t, "verifier", values.Get("code_verifier"))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "access-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
				"scope":        "openid email profile",
			})
		case "/userinfo":
			assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"sub":            "google-123",
				"email":          "user@example.com",
				"email_verified": true,
				"given_name":     "Ada",
				"family_name":    "Lovelace",
				"picture":        "https://example.com/ada.png",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	provider := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://example.com/callback",
		TokenURL:     server.URL + "/token",
		UserInfoURL:  server.URL + "/userinfo",
		HTTPClient:   server.Client(),
	})

	ctx := context.Background()
	token, err := provider.Exchange(ctx, "auth-code", "verifier")
	require.NoError(t, err)
	assert.Equal(t, "access-token", token.AccessToken)

	profile, err := provider.Profile(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "google-123", profile.Subject)
	assert.Equal(t, ProviderID, profile.Provider)
	assert.Equal(t, "user@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Ada Lovelace", profile.Name)
	assert.Equal(t, "https://example.com/ada.png", profile.AvatarURL)
}

func TestProviderExchangeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
	}))
	defer server.Close()

	provider := New(Config{
		ClientID:   "client-id",
		TokenURL:   server.URL,
		HTTPClient: server.Client(),
	})

	_, err := provider.Exchange(context.Background(), "bad-code", "")
	require.Error(t, err)

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ProviderID, perr.Provider)
	assert.Equal(t, "exchange", perr.Operation)
	assert.Equal(t, "invalid_grant", perr.Code)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
}

func TestProviderUserInfoError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials","status":"UNAUTHENTICATED"}}`))
	}))
	defer server.Close()

	provider := New(Config{
		ClientID:    "client-id",
		UserInfoURL: server.URL,
		HTTPClient:  server.Client(),
	})

	_, err := provider.Profile(context.Background(), tokenWithExtra("expired", nil))
	require.Error(t, err)

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "UNAUTHENTICATED", perr.Code)
	assert.Equal(t, "Invalid Credentials", perr.Description)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
}

func TestProviderVerifiedIDToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]any{{
				"kty": "RSA",
				"kid": "google-key",
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	defer jwks.Close()

	provider := New(Config{
		ClientID:      "client-id",
		JWKSURL:       jwks.URL,
		VerifyIDToken: true,
		HTTPClient:    jwks.Client(),
	})

	sign := func(aud, iss string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":            iss,
			"aud":            aud,
			"sub":            "google-456",
			"email":          "idtoken@example.com",
			"email_verified": true,
			"name":           "Grace Hopper",
			"exp":            time.Now().Add(time.Hour).Unix(),
			"iat":            time.Now().Unix(),
		})
		token.Header["kid"] = "google-key"
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	ctx := context.Background()

	profile, err := provider.Profile(ctx, tokenWithExtra("access", map[string]any{
		"id_token": sign("client-id", "https://accounts.google.com"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "google-456", profile.Subject)
	assert.Equal(t, "idtoken@example.com", profile.Email)
	assert.Equal(t, "Grace Hopper", profile.Name)

	_, err = provider.Profile(ctx, tokenWithExtra("access", map[string]any{
		"id_token": sign("someone-else", "https://accounts.google.com"),
	}))
	assert.Error(t, err)

	_, err = provider.Profile(ctx, tokenWithExtra("access", map[string]any{
		"id_token": sign("client-id", "https://evil.example.com"),
	}))
	assert.Error(t, err)

	_, err = provider.Profile(ctx, tokenWithExtra("access", nil))
	assert.Error(t, err)
}

func tokenWithExtra(access string, extra map[string]any) *oauth2.Token {
	token := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if extra == nil {
		return token
	}
	return token.WithExtra(extra)
}
