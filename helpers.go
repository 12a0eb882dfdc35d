package gotauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks request bodies against their `validate` tags.  Field names
// in errors are the json names.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s any) error {
	return v.validate.Struct(s)
}

// FormatValidationError turns validation errors into a field -> message map.
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}

	errs := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["error"] = "Invalid request format"
		return errs
	}

	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errs[field] = "This field is required"
		case "email":
			errs[field] = "Invalid email format"
		case "max":
			errs[field] = fmt.Sprintf("Must be at most %s characters", e.Param())
		case "min":
			errs[field] = fmt.Sprintf("Must be at least %s characters", e.Param())
		default:
			errs[field] = "Invalid value"
		}
	}
	return errs
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("error encoding response", "err", err)
	}
}

// WriteError writes {"error": message} with the status of err's kind.  The
// message of infrastructure and hashing failures is only shown in dev mode.
func WriteError(w http.ResponseWriter, err error, devMode bool) {
	status := StatusOf(err)
	msg := "Internal server error"
	var authErr *AuthError
	if errors.As(err, &authErr) && (status < 500 || devMode) {
		msg = authErr.Message
	}
	if devMode && status >= 500 {
		msg = err.Error()
	}
	WriteJSON(w, status, map[string]string{"error": msg})
}

func writeValidationError(w http.ResponseWriter, err error) {
	WriteJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "Validation error",
		"fields": FormatValidationError(err),
	})
}

// decodeBody parses a JSON body into dst and validates it.  It writes the 400
// response itself and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v *Validator, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
		return false
	}
	if err := v.ValidateStruct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}
