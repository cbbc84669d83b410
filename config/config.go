// Package config loads the sign-in service settings from the environment.
package config

import (
	"strings"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// Config implements auth.Config and carries the settings needed to wire
// the HTTP server, the database and the Google provider.
type Config struct {
	GoogleClientID      string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleVerifyIDToken bool   `env:"GOOGLE_VERIFY_ID_TOKEN" envDefault:"false"`
	GitHubClientID      string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret  string `env:"GITHUB_CLIENT_SECRET"`

	AuthSecret     string `env:"AUTH_SECRET"`
	NextAuthSecret string `env:"NEXTAUTH_SECRET"`
	JWTSecret      string `env:"JWT_SECRET"`

	BaseURL         string   `env:"AUTH_URL" envDefault:"http://localhost:3000"`
	SignInPage      string   `env:"AUTH_PAGE_SIGNIN" envDefault:"/auth/signin"`
	ErrorPage       string   `env:"AUTH_PAGE_ERROR" envDefault:"/auth/error"`
	SuccessRedirect string   `env:"AUTH_SUCCESS_REDIRECT" envDefault:"/dashboard"`
	TokenExpiration int      `env:"AUTH_TOKEN_EXPIRATION" envDefault:"720"`
	Issuer          string   `env:"AUTH_ISSUER"`
	Audience        []string `env:"AUTH_AUDIENCE" envSeparator:","`
	CookieSecure    bool     `env:"AUTH_COOKIE_SECURE" envDefault:"false"`
	AllowSignup     bool     `env:"OAUTH_ALLOW_SIGNUP" envDefault:"false"`
	Debug           bool     `env:"AUTH_DEBUG" envDefault:"false"`

	SessionCookieName string `env:"AUTH_SESSION_COOKIE" envDefault:"session_token"`
	TokenCookieName   string `env:"AUTH_TOKEN_COOKIE" envDefault:"token"`
	ContextKey        string `env:"AUTH_CONTEXT_KEY" envDefault:"user"`
	SigningMethod     string `env:"AUTH_SIGNING_METHOD" envDefault:"HS256"`

	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:signin.db?cache=shared"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":3000"`

	SignInLimit       int `env:"AUTH_SIGNIN_LIMIT" envDefault:"10"`
	SignInLimitWindow int `env:"AUTH_SIGNIN_LIMIT_WINDOW" envDefault:"60"`
}

// Load parses the environment and validates the result
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "failed to parse environment")
	}

	if cfg.AuthSecret == "" {
		cfg.AuthSecret = cfg.NextAuthSecret
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.AuthSecret, validation.Required.Error("AUTH_SECRET is required")),
		validation.Field(&c.JWTSecret, validation.Required.Error("JWT_SECRET is required")),
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.SignInPage, validation.Required),
		validation.Field(&c.ErrorPage, validation.Required),
		validation.Field(&c.TokenExpiration, validation.Min(1)),
		validation.Field(&c.SigningMethod, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&c.SignInLimit, validation.Min(1)),
		validation.Field(&c.SignInLimitWindow, validation.Min(1)),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid configuration").
			WithCode(errors.CodeBadRequest)
	}
	return nil
}

// GoogleEnabled reports whether the Google provider has credentials
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GitHubEnabled reports whether the GitHub provider has credentials
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// CallbackURL returns the absolute OAuth callback for a provider
func (c *Config) CallbackURL(provider string) string {
	return c.BaseURL + "/api/auth/callback/" + provider
}

func (c *Config) GetSessionSecret() string     { return c.AuthSecret }
func (c *Config) GetSigningKey() string        { return c.JWTSecret }
func (c *Config) GetSigningMethod() string     { return c.SigningMethod }
func (c *Config) GetContextKey() string        { return c.ContextKey }
func (c *Config) GetSessionCookieName() string { return c.SessionCookieName }
func (c *Config) GetTokenCookieName() string   { return c.TokenCookieName }
func (c *Config) GetTokenLookup() string       { return "cookie:" + c.TokenCookieName }
func (c *Config) GetTokenExpiration() int      { return c.TokenExpiration }
func (c *Config) GetIssuer() string            { return c.Issuer }
func (c *Config) GetAudience() []string        { return c.Audience }
func (c *Config) GetSignInPage() string        { return c.SignInPage }
func (c *Config) GetErrorPage() string         { return c.ErrorPage }
func (c *Config) GetSuccessRedirect() string   { return c.SuccessRedirect }
func (c *Config) GetCookieSecure() bool        { return c.CookieSecure }
