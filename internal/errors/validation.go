package errors

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// InputError represents a single malformed-input error naming the offending
// field. Structural violations in attempt data are rejected immediately;
// silently analyzing malformed data would produce misleading pedagogical
// conclusions.
type InputError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

// InputErrors is a collection of input errors.
type InputErrors []InputError

func (ie InputErrors) Error() string {
	if len(ie) == 0 {
		return "input validation failed"
	}
	if len(ie) == 1 {
		return fmt.Sprintf("input validation failed: %s %s", ie[0].Field, ie[0].Message)
	}
	return fmt.Sprintf("input validation failed: %d field errors", len(ie))
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input on field '%s': %s", e.Field, e.Message)
}

// NewInputError creates a new input error.
func NewInputError(field, message string, value interface{}) *InputError {
	return &InputError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewInputErrorWithRule creates a new input error carrying the violated rule.
func NewInputErrorWithRule(field, message, rule string, value interface{}) *InputError {
	return &InputError{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    rule,
	}
}

// ToInputErrors converts validator.ValidationErrors to our custom type.
func ToInputErrors(err error) InputErrors {
	var errs InputErrors

	if validatorErr, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validatorErr {
			errs = append(errs, InputError{
				Field:   fieldErr.Field(),
				Message: getErrorMessage(fieldErr),
				Value:   fieldErr.Value(),
				Rule:    fieldErr.Tag(),
			})
		}
	}

	return errs
}

// getErrorMessage returns user-friendly error messages
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", err.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())
	case "numeric":
		return "must be a number"

	// Custom validators
	case "severity":
		return "must be low, medium, or high"
	case "gap_type":
		return "must be a valid gap variant (concept, confidence, speed)"
	case "time_taken":
		return "must be a non-negative number of seconds"
	case "accuracy_ratio":
		return "must be between 0 and 1"

	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
