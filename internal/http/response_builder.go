// Package http serves the JSON API used by the presentation layer.
//
// This file implements the builder used by every handler to write JSON
// replies and maps domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"walleet/internal/auth"
	"walleet/internal/core"
	"walleet/internal/log"
	"walleet/internal/receipt"
	"walleet/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body sends no content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func NoContent() *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusNoContent)
}

// writeError maps err to a status code, logs server-side failures and writes
// the error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldStatusCode, status, log.FieldError, err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldStatusCode, status, log.FieldError, err)
	}
	ErrorResponse(status, messageFor(err)).Write(w)
}

func statusFor(err error) int {
	var (
		ve validator.ValidationErrors
		ge *core.GatewayError
		be *badRequestError
	)
	switch {
	case errors.As(err, &be):
		return http.StatusBadRequest
	case errors.As(err, &ve),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrDescriptionTooLong),
		errors.Is(err, core.ErrEmptyImage),
		errors.Is(err, errUnknownSubcategory),
		errors.Is(err, auth.ErrInvalidPIN),
		errors.Is(err, auth.ErrPINMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrBusy), errors.Is(err, auth.ErrNotSetUp):
		return http.StatusConflict
	case errors.Is(err, services.ErrOffline):
		return http.StatusServiceUnavailable
	case errors.Is(err, receipt.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, receipt.ErrNotImage):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &ge):
		if ge.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case core.IsPersistence(err):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// messageFor keeps internal details out of 500 replies.
func messageFor(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return validationMessage(ve)
	}
	switch statusFor(err) {
	case http.StatusInternalServerError:
		return "internal error"
	case http.StatusInsufficientStorage:
		return "could not save changes on this device"
	case http.StatusBadGateway:
		return "receipt analysis failed"
	case http.StatusGatewayTimeout:
		return "receipt analysis timed out"
	}
	return err.Error()
}
