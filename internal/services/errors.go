package services

import (
	"errors"

	apperrors "github.com/SAP-F-2025/learning-gap-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrInternalError = errors.New("internal service error")
	ErrBadRequest    = errors.New("bad request")

	// Analysis specific errors
	ErrEmptyBatch      = errors.New("attempt batch is empty")
	ErrMixedStudents   = errors.New("attempt batch contains more than one student")
	ErrReportNotCached = errors.New("no cached report for student")

	// Import specific errors
	ErrUnsupportedFileFormat = errors.New("unsupported file format")
	ErrMissingHeaderRow      = errors.New("file must have a header row and at least one data row")
)

// Use shared input errors from errors package
type InputError = apperrors.InputError
type InputErrors = apperrors.InputErrors

// NewInputError creates a new input error using the shared type
func NewInputError(field, message string, value interface{}) *InputError {
	return apperrors.NewInputError(field, message, value)
}

// IsInputError reports whether err is a field-level input error.
func IsInputError(err error) bool {
	var single *InputError
	var many InputErrors
	return errors.As(err, &single) || errors.As(err, &many)
}
