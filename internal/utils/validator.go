// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	hexAddressPattern = regexp.MustCompile(`^[0-9a-f]{8,64}$`)
	tagPattern        = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,39}$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("account_addr", validateAccountAddress)
	validate.RegisterValidation("discovery_tag", validateDiscoveryTag)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateAccountAddress(fl validator.FieldLevel) bool {
	return hexAddressPattern.MatchString(fl.Field().String())
}

func validateDiscoveryTag(fl validator.FieldLevel) bool {
	return tagPattern.MatchString(fl.Field().String())
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "len":
		return e.Field() + " must be exactly " + e.Param() + " characters"
	case "hexadecimal":
		return e.Field() + " must be hex encoded"
	case "account_addr":
		return e.Field() + " must be a lowercase hex account address"
	case "discovery_tag":
		return e.Field() + " must be a lowercase tag of letters, digits, '-' or '_'"
	default:
		return e.Field() + " is invalid"
	}
}
