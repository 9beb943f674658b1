package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("mint", isSolanaAddress)
	return v
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// isSolanaAddress accepts base58 strings of 32 to 44 characters, the textual
// range of a 32-byte public key.
func isSolanaAddress(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	return strings.Trim(s, base58Alphabet) == ""
}

// ValidateStruct checks v against its validate tags.
func ValidateStruct(v interface{}) []ValidationError {
	if err := validate.Struct(v); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

// ReadAndValidateRequest binds path, query and body into req, fills
// `default` tags, then validates.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

var tagMessages = map[string]string{
	"required": "%s is required",
	"mint":     "%s must be a base58 Solana address",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
	"oneof":    "%s must be one of [%s]",
	"gt":       "%s must be greater than %s",
	"gte":      "%s must be %s or more",
	"lt":       "%s must be less than %s",
	"lte":      "%s must be %s or less",
}

func toValidationErrors(err error) []ValidationError {
	var fes validator.ValidationErrors
	if errors.As(err, &fes) {
		out := make([]ValidationError, len(fes))
		for i, fe := range fes {
			out[i] = ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Param:   fe.Param(),
			}
		}
		return out
	}
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_MALFORMED", Message: msg}}
}

func fieldMessage(fe validator.FieldError) string {
	tmpl, ok := tagMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
	if strings.Count(tmpl, "%s") == 1 {
		return fmt.Sprintf(tmpl, fe.Field())
	}
	return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
}
