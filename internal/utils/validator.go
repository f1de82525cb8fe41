package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/SAP-F-2025/learning-gap-service/internal/errors"
	"github.com/SAP-F-2025/learning-gap-service/internal/models"
)

// Validator wraps go-playground/validator with the custom rules this
// service registers.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	RegisterCustomValidators(validate)
	return &Validator{validate: validate}
}

// Struct validates a struct and translates failures into field-level
// input errors.
func (v *Validator) Struct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if inputErrs := apperrors.ToInputErrors(err); len(inputErrs) > 0 {
			return inputErrs
		}
		return err
	}
	return nil
}

// Custom validation functions

func ValidateSeverity(fl validator.FieldLevel) bool {
	return models.Severity(fl.Field().String()).Valid()
}

func ValidateGapType(fl validator.FieldLevel) bool {
	switch models.GapType(fl.Field().String()) {
	case models.GapConcept, models.GapConfidence, models.GapSpeed:
		return true
	}
	return false
}

func ValidateTimeTaken(fl validator.FieldLevel) bool {
	return fl.Field().Float() >= 0
}

func ValidateAccuracyRatio(fl validator.FieldLevel) bool {
	value := fl.Field().Float()
	return value >= 0 && value <= 1
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("severity", ValidateSeverity)
	validate.RegisterValidation("gap_type", ValidateGapType)
	validate.RegisterValidation("time_taken", ValidateTimeTaken)
	validate.RegisterValidation("accuracy_ratio", ValidateAccuracyRatio)

	// Register custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
