package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SignupRequest is the parsed, validated signup payload.
type SignupRequest struct {
	Firstname string `json:"firstname" validate:"required"`
	Lastname  string `json:"lastname" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

// FieldError describes a single invalid or missing field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Signup parses and validates a raw signup body. It returns either a valid
// parsed request or the list of field errors, never both.
func Signup(body []byte) (*SignupRequest, []FieldError) {
	var req SignupRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, []FieldError{{Field: "body", Message: "request body must be valid JSON"}}
	}

	req.Firstname = strings.TrimSpace(req.Firstname)
	req.Lastname = strings.TrimSpace(req.Lastname)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	err := validate.Struct(&req)
	if err == nil {
		return &req, nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, []FieldError{{Field: "body", Message: err.Error()}}
	}

	fieldErrs := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrs = append(fieldErrs, FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: messageFor(fe),
		})
	}
	return nil, fieldErrs
}

func messageFor(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "invalid email id"
	case "min":
		return fmt.Sprintf("%s should be min length %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
