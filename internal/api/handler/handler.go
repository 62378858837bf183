package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/Rrens/energy-agent/internal/api/middleware"
	"github.com/Rrens/energy-agent/internal/api/response"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

var errEmptyBody = errors.New("request body is required")

// decodeJSON reads the request body into v. An empty body is accepted when optional is set.
func decodeJSON(r *http.Request, v any, optional bool) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return errEmptyBody
		}
		return err
	}
	return nil
}

// bind decodes and validates the request body, writing the error response on failure
func bind(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	if err := decodeJSON(r, v, optional); err != nil {
		if errors.Is(err, errEmptyBody) {
			response.BadRequest(w, err.Error())
			return false
		}
		response.BadRequest(w, "invalid request body")
		return false
	}

	if err := validate.Struct(v); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			response.ValidationError(w, fieldErrors(validationErrors))
			return false
		}
		response.BadRequest(w, err.Error())
		return false
	}
	return true
}

func fieldErrors(validationErrors validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			fields[field] = "field is required"
		case "min":
			fields[field] = "must have at least " + e.Param() + " entries"
		case "max":
			fields[field] = "must be at most " + e.Param() + " characters"
		default:
			fields[field] = "validation failed on " + e.Tag()
		}
	}
	return fields
}

// currentUser returns the authenticated user id or writes a 401
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return "", false
	}
	return userID, true
}

// queryInt parses a non-negative integer query parameter, clamped to max when max > 0
func queryInt(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
