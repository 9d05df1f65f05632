package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"walleet/internal/auth"
	"walleet/internal/core"
	"walleet/internal/receipt"
	"walleet/internal/services"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/1").
		Body(map[string]int{"count": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Location"); got != "/api/expenses/1" {
		t.Errorf("Location = %q", got)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["count"] != 1 {
		t.Errorf("body = %v", body)
	}
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NoContent().Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusConflict, "busy").Write(w)

	if w.Code != http.StatusConflict {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusConflict)
	}
	if got := w.Body.String(); got != "{\"error\":\"busy\"}\n" {
		t.Errorf("Body = %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad json", &badRequestError{msg: "x"}, http.StatusBadRequest},
		{"invalid date", core.ErrInvalidDate, http.StatusUnprocessableEntity},
		{"invalid amount wrapped", fmt.Errorf("expense 2: %w", core.ErrInvalidAmount), http.StatusUnprocessableEntity},
		{"bad pin", auth.ErrInvalidPIN, http.StatusUnprocessableEntity},
		{"not found", core.ErrNotFound, http.StatusNotFound},
		{"busy", services.ErrBusy, http.StatusConflict},
		{"not set up", auth.ErrNotSetUp, http.StatusConflict},
		{"offline", services.ErrOffline, http.StatusServiceUnavailable},
		{"too large", receipt.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{"not an image", receipt.ErrNotImage, http.StatusUnsupportedMediaType},
		{"gateway", &core.GatewayError{Op: "analyze", Err: errors.New("503")}, http.StatusBadGateway},
		{"gateway timeout", &core.GatewayError{Op: "analyze", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"persistence", &core.PersistenceError{Op: "set", Key: "expenses", Err: errors.New("disk full")}, http.StatusInsufficientStorage},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestMessageFor_HidesInternalErrors(t *testing.T) {
	if got := messageFor(errors.New("sql: connection refused")); got != "internal error" {
		t.Errorf("messageFor = %q", got)
	}
	if got := messageFor(services.ErrBusy); got != services.ErrBusy.Error() {
		t.Errorf("messageFor = %q", got)
	}
}
