package auth

import (
	"context"
	"fmt"
	"strings"
)

// Logger is the structured logger used across the package. The first
// argument is a message, the rest are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth options
type Config interface {
	// GetSessionSecret signs the session cookie (AUTH_SECRET)
	GetSessionSecret() string
	// GetSigningKey signs the gate cookie checked by protected API routes (JWT_SECRET)
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetSessionCookieName() string
	GetTokenCookieName() string
	GetTokenLookup() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetSignInPage() string
	GetErrorPage() string
	GetSuccessRedirect() string
	GetCookieSecure() bool
}

// UserStore is the persistence contract needed by sign-in.
type UserStore interface {
	// FindByEmail returns ErrUserNotFound when no record matches
	FindByEmail(ctx context.Context, email string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	LinkAccount(ctx context.Context, account *Account) error
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Authenticator is the sign-in surface consumed by the HTTP layer and
// the social flow.
type Authenticator interface {
	SignInWithCredentials(ctx context.Context, email, password string) (*SignInResult, error)
	SignInWithOAuth(ctx context.Context, user AuthUser, account AccountInfo) (*SignInResult, error)
	SessionFromToken(raw string) (SessionClaims, error)
	Providers() []ProviderInfo
}

// ProviderInfo describes a sign-in method the UI can offer.
type ProviderInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SignInURL   string `json:"signinUrl"`
	CallbackURL string `json:"callbackUrl"`
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args...) }

func (defLogger) print(level, msg string, args ...any) {
	var b strings.Builder
	b.WriteString("[" + level + "] AUTH " + msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	fmt.Println(b.String())
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
