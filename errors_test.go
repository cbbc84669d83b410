package auth_test

import (
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-signin"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "token expired sentinel",
			err:      auth.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "rich error with the expired text code",
			err:      goerrors.New("expired", goerrors.CategoryAuth).WithTextCode(auth.TextCodeTokenExpired),
			expected: true,
		},
		{
			name:     "different sentinel",
			err:      auth.ErrTokenMalformed,
			expected: false,
		},
		{
			name:     "plain error",
			err:      errors.New("token is expired"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsTokenExpiredError(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", auth.ErrorMessage(nil))
	assert.Equal(t, "Email and password are required", auth.ErrorMessage(auth.ErrMissingCredentials))
	assert.Equal(t, "User not found", auth.ErrorMessage(auth.ErrUserNotFound))
	assert.Equal(t, "Invalid email or password", auth.ErrorMessage(auth.ErrInvalidCredentials))
	assert.Equal(t, "boom", auth.ErrorMessage(errors.New("boom")))
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, auth.ErrorStatus(auth.ErrMissingCredentials, http.StatusTeapot))
	assert.Equal(t, http.StatusUnauthorized, auth.ErrorStatus(auth.ErrInvalidCredentials, http.StatusTeapot))
	assert.Equal(t, http.StatusForbidden, auth.ErrorStatus(auth.ErrAccessDenied, http.StatusTeapot))
	assert.Equal(t, http.StatusTeapot, auth.ErrorStatus(errors.New("plain"), http.StatusTeapot))
}

func TestHasTextCode(t *testing.T) {
	assert.True(t, auth.HasTextCode(auth.ErrEmailTaken, auth.TextCodeEmailTaken))
	assert.False(t, auth.HasTextCode(auth.ErrEmailTaken, auth.TextCodeAccessDenied))
	assert.False(t, auth.HasTextCode(nil, auth.TextCodeEmailTaken))
	assert.False(t, auth.IsStoreError(auth.ErrUserNotFound))
}
