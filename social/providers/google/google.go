// Package google implements the Google OAuth provider.
package google

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/goliatone/go-signin/social"
)

const (
	ProviderID = "google"

	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	defaultJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"
)

// Config holds the Google client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	JWKSURL     string

	// VerifyIDToken reads the profile from the verified id_token instead
	// of calling the userinfo endpoint.
	VerifyIDToken bool

	HTTPClient *http.Client
}

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// Provider implements social.Provider for Google.
type Provider struct {
	*social.OAuth2
	config   Config
	verifier *idTokenVerifier
}

var _ social.Provider = (*Provider)(nil)

// New creates a Google provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultJWKSURL
	}

	p := &Provider{
		config: cfg,
		OAuth2: social.NewOAuth2(ProviderID, oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}, cfg.HTTPClient, oauth2.SetAuthURLParam("prompt", "select_account")),
	}

	if cfg.VerifyIDToken {
		p.verifier = newIDTokenVerifier(cfg.JWKSURL, cfg.ClientID, p.HTTPClient)
	}

	return p
}

// ID implements social.Provider.
func (p *Provider) ID() string { return ProviderID }

// Name implements social.Provider.
func (p *Provider) Name() string { return "Google" }

// Profile implements social.Provider.
func (p *Provider) Profile(ctx context.Context, token *oauth2.Token) (*social.Profile, error) {
	if p.verifier != nil {
		raw, _ := token.Extra("id_token").(string)
		claims, err := p.verifier.Verify(ctx, raw)
		if err != nil {
			return nil, &social.ProviderError{
				Provider:    ProviderID,
				Operation:   "id_token",
				Code:        "invalid_id_token",
				Description: "id_token verification failed",
				Err:         err,
			}
		}
		return claims.profile(), nil
	}

	var info userInfo
	if err := p.GetJSON(ctx, token, p.config.UserInfoURL, "user_info", &info); err != nil {
		return nil, err
	}
	return info.profile(), nil
}
