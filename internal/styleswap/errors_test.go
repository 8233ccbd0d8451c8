package styleswap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorIsValidation(t *testing.T) {
	err := fmt.Errorf("update settings: %w", NewValidationError("default_commission_percentage", "out of range"))

	assert.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "default_commission_percentage", verr.Field)
}

func TestAuthErrorUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *AuthError
		want string
	}{
		{
			name: "wrong password by code",
			err:  &AuthError{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"},
			want: MsgInvalidCredentials,
		},
		{
			name: "wrong password legacy grant error",
			err:  &AuthError{Status: 400, Code: "invalid_grant", Message: "Invalid login credentials"},
			want: MsgInvalidCredentials,
		},
		{
			name: "provider rejection is shown",
			err:  &AuthError{Status: 422, Code: "weak_password", Message: "Password should be at least 6 characters"},
			want: "Password should be at least 6 characters",
		},
		{
			name: "provider outage is generic",
			err:  &AuthError{Status: 502, Message: "upstream connect error"},
			want: MsgAuthFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.UserMessage())
			assert.ErrorIs(t, tt.err, ErrAuth)
		})
	}
}

func TestPersistenceWrapsBoth(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("insert affiliate", cause)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
}
