package social

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound  = "OAUTH_PROVIDER_NOT_FOUND"
	TextCodeInvalidState      = "OAUTH_INVALID_STATE"
	TextCodeStateExpired      = "OAUTH_STATE_EXPIRED"
	TextCodeTokenExchangeFail = "OAUTH_TOKEN_EXCHANGE_FAILED"
	TextCodeProfileFail       = "OAUTH_PROFILE_FAILED"
	TextCodeMissingCode       = "OAUTH_MISSING_CODE"
	TextCodeProviderDenied    = "OAUTH_PROVIDER_DENIED"
)

// ErrProviderNotFound is returned for providers that were never registered
var ErrProviderNotFound = errors.New("oauth provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidState is returned when the state parameter fails to decrypt,
// names another provider or was issued to another browser.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

var ErrTokenExchangeFailed = errors.New("token exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExchangeFail).
	WithCode(errors.CodeUnauthorized)

var ErrProfileFailed = errors.New("failed to fetch provider profile", errors.CategoryAuth).
	WithTextCode(TextCodeProfileFail).
	WithCode(errors.CodeUnauthorized)

var ErrMissingCode = errors.New("authorization code and state are required", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingCode).
	WithCode(errors.CodeBadRequest)

// ErrProviderDenied is returned when the provider redirects back with an
// error, usually because the user cancelled the consent screen.
var ErrProviderDenied = errors.New("provider denied the authorization request", errors.CategoryAuthz).
	WithTextCode(TextCodeProviderDenied).
	WithCode(errors.CodeForbidden)
