// Package github implements the GitHub OAuth provider.
package github

import (
	"context"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/goliatone/go-signin/social"
)

const (
	ProviderID = "github"

	defaultAuthURL   = "https://github.com/login/oauth/authorize"
	defaultTokenURL  = "https://github.com/login/oauth/access_token"
	defaultUserURL   = "https://api.github.com/user"
	defaultEmailsURL = "https://api.github.com/user/emails"
)

// Config holds the GitHub OAuth app settings.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL   string
	TokenURL  string
	UserURL   string
	EmailsURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default GitHub scopes.
func DefaultScopes() []string {
	return []string{"read:user", "user:email"}
}

// Provider implements social.Provider for GitHub.
type Provider struct {
	*social.OAuth2
	config Config
}

var _ social.Provider = (*Provider)(nil)

// New creates a GitHub provider.
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
	if cfg.UserURL == "" {
		cfg.UserURL = defaultUserURL
	}
	if cfg.EmailsURL == "" {
		cfg.EmailsURL = defaultEmailsURL
	}

	return &Provider{
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
		}, cfg.HTTPClient),
	}
}

// ID implements social.Provider.
func (p *Provider) ID() string { return ProviderID }

// Name implements social.Provider.
func (p *Provider) Name() string { return "GitHub" }

// Profile implements social.Provider. Users with a private email get
// their primary address from the emails endpoint.
func (p *Provider) Profile(ctx context.Context, token *oauth2.Token) (*social.Profile, error) {
	var user githubUser
	if err := p.GetJSON(ctx, token, p.config.UserURL, "user_info", &user); err != nil {
		return nil, err
	}

	if user.Email != "" {
		return user.profile(user.Email, false), nil
	}

	var emails []githubEmail
	if err := p.GetJSON(ctx, token, p.config.EmailsURL, "emails", &emails); err != nil {
		return nil, err
	}

	email, verified := primaryEmail(emails)
	if email == "" {
		return nil, &social.ProviderError{
			Provider:    ProviderID,
			Operation:   "emails",
			Code:        "email_not_found",
			Description: "no usable email on the account",
		}
	}

	return user.profile(email, verified), nil
}

func primaryEmail(emails []githubEmail) (string, bool) {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, true
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true
		}
	}
	return "", false
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
