package models

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidUserID        = fmt.Errorf("%w: user", ErrInvalidID)
	ErrInvalidTransactionID = fmt.Errorf("%w: transaction", ErrInvalidID)
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrForbidden            = errors.New("forbidden")
	ErrValidation           = errors.New("validation failed")
	ErrUnknownCurrency      = errors.New("unknown currency")
)

// ValidationError describes a rejected input field
type ValidationError struct {
	Message string
}

// NewValidationError creates a ValidationError with a user-facing message
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
