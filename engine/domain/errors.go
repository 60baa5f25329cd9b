package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrUnknownCard       = errors.New("unknown card_id")
	ErrBadOrientation    = errors.New("orientation must be upright or reversed")
	ErrBadLifeArea       = errors.New("domain must be one of love, career, money, general")
	ErrBadPosition       = errors.New("position not declared by the chosen spread")
	ErrDrawCountMismatch = errors.New("draw count does not match spread card_count")
	ErrUnknownTheme      = errors.New("unknown theme label")
	ErrUnknownSubTopic   = errors.New("unknown sub-topic label")
	ErrQuestionTooLong   = errors.New("question too long")
)

// FieldError pinpoints one invalid field in a draws payload.
type FieldError struct {
	Field  string `json:"field"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("draws[%d].%s: %s", e.Index, e.Field, e.Reason)
}

// ValidationError aggregates per-field errors for the HTTP 400 body.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "invalid draws payload: " + e.Errors[0].Error()
	}
	return fmt.Sprintf("invalid draws payload: %d field errors", len(e.Errors))
}

// NewValidationError wraps field errors, returning nil when there are none.
func NewValidationError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
