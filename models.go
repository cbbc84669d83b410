package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// ProviderCredentials identifies the email/password sign-in method
	ProviderCredentials = "credentials"
	// ProviderGoogle identifies the Google OAuth sign-in method
	ProviderGoogle = "google"

	AccountTypeCredentials = "credentials"
	AccountTypeOAuth       = "oauth"
)

// User is the user model
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email           string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Name            string     `bun:"name" json:"name,omitempty"`
	Image           string     `bun:"image" json:"image,omitempty"`
	PasswordHash    string     `bun:"password_hash" json:"-"`
	EmailVerifiedAt *time.Time `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AuthUser returns the identity view of the record
func (u *User) AuthUser() AuthUser {
	if u == nil {
		return AuthUser{}
	}
	out := AuthUser{
		Email: u.Email,
		Name:  u.Name,
		Image: u.Image,
	}
	if u.ID != uuid.Nil {
		out.ID = u.ID.String()
	}
	return out
}

// Account links a user to an external sign-in provider
type Account struct {
	bun.BaseModel     `bun:"table:accounts,alias:acc"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID            uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Provider          string     `bun:"provider,notnull" json:"provider,omitempty"`
	ProviderAccountID string     `bun:"provider_account_id,notnull" json:"provider_account_id,omitempty"`
	Type              string     `bun:"type,notnull" json:"type,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// AuthUser is the identity an auth flow produces: a stored user for
// credentials, the provider profile for OAuth.
type AuthUser struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// NormalizeEmail lower cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prepareUserDefaults(user *User) {
	if user == nil {
		return
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = NormalizeEmail(user.Email)
	user.Name = strings.TrimSpace(user.Name)
}
