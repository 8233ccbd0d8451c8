package styleswap

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrDuplicateEnrollment = errors.New("account is already enrolled in the partner program")
	ErrNotFound            = errors.New("not found")
	ErrAuth                = errors.New("authentication failed")
	ErrPersistence         = errors.New("persistence failure")
	// ErrReferralCodeTaken is returned when a concurrent writer claimed the same code; retry with a new one.
	ErrReferralCodeTaken = errors.New("referral code already taken")
)

const (
	MsgInvalidCredentials = "Incorrect email or password. Please try again or sign up if you don't have an account."
	MsgAuthFailed         = "Authentication failed. Please try again."
)

type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AuthError is an identity provider rejection. Code carries the provider's
// error code, Message its raw description.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

func (e *AuthError) InvalidCredentials() bool {
	return e.Code == "invalid_credentials" || e.Code == "invalid_grant" || e.Message == "Invalid login credentials"
}

// UserMessage is the text safe to show to the person signing in.
func (e *AuthError) UserMessage() string {
	if e.InvalidCredentials() {
		return MsgInvalidCredentials
	}
	if e.Message != "" && e.Status >= 400 && e.Status < 500 {
		return e.Message
	}
	return MsgAuthFailed
}

func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
