package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports free-text input that failed shape validation.
// Message is ready to be shown to the user as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DuplicateError reports an attempt to store a theme whose (grade, name) pair
// already exists. Message is ready to be shown to the user as-is.
type DuplicateError struct {
	Grade   string
	Name    string
	Message string
}

func (e *DuplicateError) Error() string {
	return e.Message
}

// ErrNotFound is returned by point lookups and updates that match no row.
type ErrNotFound struct {
	Entity EntityType
	ID     int64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsDuplicate reports whether err wraps a DuplicateError.
func IsDuplicate(err error) bool {
	var target *DuplicateError
	return errors.As(err, &target)
}

// IsNotFound reports whether err wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var target ErrNotFound
	return errors.As(err, &target)
}

// UserMessage extracts the pre-composed message of a recoverable error.
// It returns false for every other failure, which callers must render generically.
func UserMessage(err error) (string, bool) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message, true
	}
	var duplicate *DuplicateError
	if errors.As(err, &duplicate) {
		return duplicate.Message, true
	}
	return "", false
}
