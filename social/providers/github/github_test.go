package github

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-signin/social"
)

func TestProviderAuthCodeURL(t *testing.T) {
	provider := New(Config{
		ClientID:    "client-id",
		CallbackURL: "https://example.com/api/auth/callback/github",
	})

	parsed, err := url.Parse(provider.AuthCodeURL("state-token", "verifier"))
	require.NoError(t, err)
	assert.Equal(t, "github.com", parsed.Host)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://example.com/api/auth/callback/github", query.Get("redirect_uri"))
	assert.Equal(t, "state-token", query.Get("state"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.Equal(t, "read:user user:email", query.Get("scope"))
}

func newGitHubServer(t *testing.T, publicEmail string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/login/oauth/access_token":
			assert.Equal(t, http.MethodPost, r.Method)
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			values, err := url.ParseQuery(string(body))
			assert.NoError(t, err)
			assert.Equal(t, "client-id", values.Get("client_id"))
			assert.Equal(t, "client-secret", values.Get("client_secret"))
			assert.Equal(t, "auth-code", values.Get("code"))

			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "gh-token",
				"token_type":   "bearer",
				"scope":        "read:user,user:email",
			})
		case "/user":
			assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":         42,
				"login":      "octocat",
				"email":      publicEmail,
				"avatar_url": "https://example.com/octocat.png",
			})
		case "/user/emails":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"email": "old@example.com", "primary": false, "verified": true},
				{"email": "octo@example.com", "primary": true, "verified": true},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestProvider(server *httptest.Server) *Provider {
	return New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     server.URL + "/login/oauth/access_token",
		UserURL:      server.URL + "/user",
		EmailsURL:    server.URL + "/user/emails",
		HTTPClient:   server.Client(),
	})
}

func TestProviderProfileWithPrivateEmail(t *testing.T) {
	server := newGitHubServer(t, "")
	defer server.Close()

	provider := newTestProvider(server)
	ctx := context.Background()

	token, err := provider.Exchange(ctx, "auth-code", "verifier")
	require.NoError(t, err)

	profile, err := provider.Profile(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "42", profile.Subject)
	assert.Equal(t, "octo@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "octocat", profile.Name)
	assert.Equal(t, "octocat", profile.Username)
}

func TestProviderProfileWithPublicEmail(t *testing.T) {
	server := newGitHubServer(t, "public@example.com")
	defer server.Close()

	provider := newTestProvider(server)
	ctx := context.Background()

	token, err := provider.Exchange(ctx, "auth-code", "")
	require.NoError(t, err)

	profile, err := provider.Profile(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "public@example.com", profile.Email)
	assert.False(t, profile.EmailVerified)
}

func TestProviderProfileAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer server.Close()

	provider := newTestProvider(server)

	_, err := provider.Profile(context.Background(), tokenFor("bad"))
	require.Error(t, err)

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ProviderID, perr.Provider)
	assert.Equal(t, "Bad credentials", perr.Description)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
}

func TestPrimaryEmail(t *testing.T) {
	email, verified := primaryEmail([]githubEmail{
		{Email: "unverified@example.com", Primary: true},
		{Email: "verified@example.com", Verified: true},
	})
	assert.Equal(t, "verified@example.com", email)
	assert.True(t, verified)

	email, _ = primaryEmail([]githubEmail{{Email: "nope@example.com"}})
	assert.Empty(t, email)
}

func tokenFor(access string) *oauth2.Token {
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
}
