package auth

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of every token we sign
type TokenClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"id,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// NewTokenClaims returns an empty claims value. Used as the claims
// factory for the JWT middleware.
func NewTokenClaims() jwt.Claims {
	return &TokenClaims{}
}

// UserID returns the user ID
func (c *TokenClaims) UserID() string {
	if c == nil {
		return ""
	}
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the issued at time
func (c *TokenClaims) Issued() time.Time {
	if c == nil || c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// SessionUser is the user view exposed to the client
type SessionUser struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// SessionClaims is the client visible session
type SessionClaims struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires"`
}

// IsZero reports whether the session carries no user
func (s SessionClaims) IsZero() bool {
	return s.User.ID == "" && s.User.Email == ""
}

// AccountInfo describes which provider produced a sign-in attempt
type AccountInfo struct {
	Provider          string `json:"provider"`
	Type              string `json:"type"`
	ProviderAccountID string `json:"providerAccountId,omitempty"`
}

// CredentialsAccount is the account info used for email/password sign-in
func CredentialsAccount(userID string) AccountInfo {
	return AccountInfo{
		Provider:          ProviderCredentials,
		Type:              AccountTypeCredentials,
		ProviderAccountID: userID,
	}
}

// IsOAuth reports whether the account comes from an OAuth provider
func (a AccountInfo) IsOAuth() bool {
	return a.Type == AccountTypeOAuth
}

// Validate checks the account info is complete
func (a AccountInfo) Validate() error {
	err := validation.ValidateStruct(&a,
		validation.Field(&a.Provider, validation.Required),
		validation.Field(&a.Type, validation.Required, validation.In(AccountTypeCredentials, AccountTypeOAuth)),
	)
	if err != nil {
		return err
	}
	if a.IsOAuth() && a.ProviderAccountID == "" {
		return validation.Errors{
			"ProviderAccountID": errors.New("cannot be blank"),
		}
	}
	return nil
}
