package binding

import (
	"fmt"

	validatorV10 "github.com/go-playground/validator/v10"
)

var validator *validatorV10.Validate

func init() {
	validator = validatorV10.New()
}

func validate(v any) error {
	err := validator.Struct(v)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validatorV10.ValidationErrors)
	if !ok {
		return &BindError{
			Type:    "validation_error",
			Message: err.Error(),
		}
	}
	bindErrors := make(ValidationErrors, 0, len(validationErrors))
	for _, ve := range validationErrors {
		bindErrors = append(bindErrors, BindError{
			Type:    "validation_error",
			Field:   ve.Field(),
			Message: getValidationMessage(ve),
		})
	}
	return bindErrors
}

func getValidationMessage(fe validatorV10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "alphanum":
		return "must contain only alphanumeric characters"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}
