package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// CredentialOutcome is the result of checking an email/password pair
type CredentialOutcome int

const (
	OutcomeOK CredentialOutcome = iota
	OutcomeMissingCredentials
	OutcomeUserNotFound
	OutcomeInvalidPassword
)

func (o CredentialOutcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeMissingCredentials:
		return "missing_credentials"
	case OutcomeUserNotFound:
		return "user_not_found"
	case OutcomeInvalidPassword:
		return "invalid_password"
	default:
		return "unknown"
	}
}

// Credentials is the submitted email/password pair
type Credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// CredentialResult carries the outcome of Authorize and the matched
// user when the outcome is OutcomeOK.
type CredentialResult struct {
	Outcome CredentialOutcome
	User    *User
}

// OK reports whether the credentials were accepted
func (r CredentialResult) OK() bool {
	return r.Outcome == OutcomeOK && r.User != nil
}

// Err maps a failed outcome to its user facing error
func (r CredentialResult) Err() error {
	switch r.Outcome {
	case OutcomeOK:
		return nil
	case OutcomeMissingCredentials:
		return ErrMissingCredentials
	case OutcomeUserNotFound:
		return ErrUserNotFound
	default:
		return ErrInvalidCredentials
	}
}

// CredentialStrategy verifies an email/password pair against the store.
type CredentialStrategy struct {
	store     UserStore
	passwords PasswordAuthenticator
	logger    Logger
}

// NewCredentialStrategy returns a strategy backed by bcrypt.
func NewCredentialStrategy(store UserStore) *CredentialStrategy {
	return &CredentialStrategy{
		store:     store,
		passwords: BcryptPasswords{},
		logger:    defLogger{},
	}
}

func (s *CredentialStrategy) WithLogger(logger Logger) *CredentialStrategy {
	s.logger = normalizeLogger(logger)
	return s
}

func (s *CredentialStrategy) WithPasswordAuthenticator(p PasswordAuthenticator) *CredentialStrategy {
	if p != nil {
		s.passwords = p
	}
	return s
}

// Authorize checks the credentials. A failed check is reported through
// the outcome; the error return is reserved for store failures.
func (s *CredentialStrategy) Authorize(ctx context.Context, creds Credentials) (CredentialResult, error) {
	email := NormalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return CredentialResult{Outcome: OutcomeMissingCredentials}, nil
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Debug("credentials sign-in for unknown email", "email", email)
			return CredentialResult{Outcome: OutcomeUserNotFound}, nil
		}
		if IsStoreError(err) {
			return CredentialResult{}, err
		}
		return CredentialResult{}, storeError(err, "failed to retrieve user during sign-in")
	}

	if user == nil {
		return CredentialResult{Outcome: OutcomeUserNotFound}, nil
	}

	if user.PasswordHash == "" {
		s.logger.Debug("credentials sign-in for account without password", "email", email)
		return CredentialResult{Outcome: OutcomeInvalidPassword}, nil
	}

	if err := s.passwords.ComparePasswordAndHash(creds.Password, user.PasswordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			s.logger.Error("password comparison failed", "email", email, "error", err)
		}
		return CredentialResult{Outcome: OutcomeInvalidPassword}, nil
	}

	return CredentialResult{Outcome: OutcomeOK, User: user}, nil
}
