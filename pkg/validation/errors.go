package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Message returns a human-readable message for a validation error. The field
// name is not repeated so callers can prefix it themselves.
func Message(err validator.FieldError) string {
	param := err.Param()

	switch err.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", param)
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", param)
	case "gt":
		return fmt.Sprintf("must be greater than %s", param)
	case "lt":
		return fmt.Sprintf("must be less than %s", param)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", param)
	case "latitude":
		return "must be a valid latitude (-90 to 90)"
	case "longitude":
		return "must be a valid longitude (-180 to 180)"
	case "cdr_timestamp":
		return "must be an ISO-8601 date or date-time"
	default:
		return "is invalid"
	}
}
