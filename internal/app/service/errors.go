package service

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when a non-admin caller asks for a record it does not own.
	ErrForbidden = errors.New("tracking record belongs to another user")
	// ErrAdminRequired guards bulk administrative operations.
	ErrAdminRequired = errors.New("admin privileges required")
	// ErrInvalidConfirmation is returned when the wipe confirmation phrase does not match.
	ErrInvalidConfirmation = errors.New("invalid confirmation")
)

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("%s is invalid", e.Field)
	}
	return fmt.Sprintf("%s is invalid (%s)", e.Field, e.Rule)
}
