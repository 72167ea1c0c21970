package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by collaborators and handlers
var (
	ErrRecordNotFound    = errors.New("payment record not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrMethodNotFound    = errors.New("payment method not found")
	ErrCountryNotFound   = errors.New("country not found")
	ErrIllegalTransition = errors.New("illegal ledger state transition")
)

// ValidationError reports a missing or malformed mandatory field on an inbound payload
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
