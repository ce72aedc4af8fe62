package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct validates a struct using its validation tags
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			messages := make([]string, 0, len(validationErrors))
			for _, fieldErr := range validationErrors {
				messages = append(messages, formatFieldError(fieldErr))
			}
			return fmt.Errorf("%s", strings.Join(messages, "; "))
		}
		return err
	}
	return nil
}

func formatFieldError(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldErr.Field())
	case "max":
		return fmt.Sprintf("%s exceeds maximum length %s", fieldErr.Field(), fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fieldErr.Field(), fieldErr.Param())
	default:
		return fmt.Sprintf("%s failed validation '%s'", fieldErr.Field(), fieldErr.Tag())
	}
}
