package services

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrUnauthorized          = errors.New("not allowed")
	ErrNotFound              = errors.New("not found")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInvalidState          = errors.New("invalid state")
	ErrAccountNotProvisioned = errors.New("account not provisioned")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrDuplicate             = errors.New("already exists")
	ErrSameAccountTransfer   = errors.New("cannot transfer to same account")
	ErrOwnerMismatch         = errors.New("account owner does not match transfer")
	ErrInvalidCredentials    = errors.New("invalid credentials")
)

var ErrAccountExists = fmt.Errorf("account %w", ErrDuplicate)

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// lookupErr maps a missing row to ErrNotFound and wraps anything else.
func lookupErr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
