package auth

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeMissingCredentials = "MISSING_CREDENTIALS"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAccessDenied       = "ACCESS_DENIED"
	TextCodeUnauthorized       = "UNAUTHORIZED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeStoreAccess        = "STORE_ACCESS_FAILED"
	TextCodeInvalidAccount     = "INVALID_ACCOUNT"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeNoSession          = "NO_SESSION"
)

// ErrMissingCredentials is returned when email or password are empty
var ErrMissingCredentials = errors.New("Email and password are required", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingCredentials).
	WithCode(errors.CodeBadRequest)

// ErrUserNotFound is returned when no user matches the given email
var ErrUserNotFound = errors.New("User not found", errors.CategoryAuth).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCredentials is returned when the password does not match
var ErrInvalidCredentials = errors.New("Invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccessDenied is returned when the sign-in gate rejects an attempt
var ErrAccessDenied = errors.New("access denied", errors.CategoryAuthz).
	WithTextCode(TextCodeAccessDenied).
	WithCode(errors.CodeForbidden)

// ErrUnauthorized is the uniform rejection used by protected routes
var ErrUnauthorized = errors.New("Unauthorized", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their exp claim
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail to parse or verify
var ErrTokenMalformed = errors.New("token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrNoSession is returned when a request carries no session cookie
var ErrNoSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeNoSession).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidAccount is returned when account info fails validation
var ErrInvalidAccount = errors.New("invalid account info", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidAccount).
	WithCode(errors.CodeBadRequest)

// ErrEmailTaken is returned when creating a user with an existing email
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password can not be an empty string", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned by ComparePasswordAndHash on mismatch
var ErrMismatchedHashAndPassword = errors.New("password does not match hash", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// HasTextCode reports whether err, or any error it wraps, is a rich error
// carrying the given text code.
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsTokenExpiredError reports whether err was caused by an expired token
func IsTokenExpiredError(err error) bool {
	return errors.Is(err, ErrTokenExpired) || HasTextCode(err, TextCodeTokenExpired)
}

// IsMalformedError reports whether err was caused by an unparsable token
func IsMalformedError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) || HasTextCode(err, TextCodeTokenMalformed)
}

// IsStoreError reports whether err was caused by a failed store access
func IsStoreError(err error) bool {
	return HasTextCode(err, TextCodeStoreAccess)
}

// ErrorMessage returns the user facing message of a rich error, falling
// back to err.Error().
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}
	return err.Error()
}

// ErrorStatus returns the HTTP status carried by a rich error or def.
func ErrorStatus(err error, def int) int {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Code != 0 {
		return richErr.Code
	}
	return def
}

func storeError(err error, msg string) error {
	return errors.Wrap(err, errors.CategoryInternal, msg).
		WithTextCode(TextCodeStoreAccess).
		WithCode(errors.CodeInternal)
}
