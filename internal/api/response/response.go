package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/rs/zerolog/log"
)

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody carries a stable error code next to the message
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Write sends v as the JSON body without the standard envelope
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	Write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// Error sends an error response
func Error(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, Response{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}

// ValidationError sends a 400 response with per-field details
func ValidationError(w http.ResponseWriter, details any) {
	Write(w, http.StatusBadRequest, Response{
		Success: false,
		Error:   &ErrorBody{Code: domain.CodeValidation, Message: "validation failed", Details: details},
	})
}

// FromError maps a service error onto its status code. Internal errors are
// logged and reported with a generic message.
func FromError(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	switch code {
	case domain.CodeValidation:
		Error(w, http.StatusBadRequest, code, err.Error())
	case domain.CodeForbidden:
		Error(w, http.StatusForbidden, code, "access denied")
	case domain.CodeNotFound:
		Error(w, http.StatusNotFound, code, "resource not found")
	case domain.CodeConflict:
		Error(w, http.StatusConflict, code, "resource was modified concurrently, retry the request")
	default:
		log.Error().Err(err).Msg("Request failed")
		if errors.Is(err, http.ErrHandlerTimeout) {
			Error(w, http.StatusServiceUnavailable, code, "request timed out")
			return
		}
		Error(w, http.StatusInternalServerError, code, "internal server error")
	}
}

// NoContent sends a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Created sends a 201 Created response with data
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response with data
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, domain.CodeValidation, message)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, domain.CodeUnauthorized, message)
}

// Forbidden sends a 403 Forbidden response
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, domain.CodeForbidden, message)
}

// NotFound sends a 404 Not Found response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, domain.CodeNotFound, message)
}

// TooManyRequests sends a 429 Too Many Requests response
func TooManyRequests(w http.ResponseWriter, message string) {
	Error(w, http.StatusTooManyRequests, domain.CodeRateLimited, message)
}

// InternalError sends a 500 Internal Server Error response
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, domain.CodeInternal, message)
}
