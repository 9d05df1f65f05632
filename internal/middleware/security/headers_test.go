package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, config HeadersConfig, req *http.Request) http.Header {
	t.Helper()
	h := NewHeadersMiddleware(config).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Header()
}

func TestHeaders_Defaults(t *testing.T) {
	got := serve(t, DefaultHeadersConfig(), httptest.NewRequest(http.MethodGet, "/api/expenses", nil))

	assert.Equal(t, "nosniff", got.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", got.Get("X-Frame-Options"))
	assert.Equal(t, "no-store", got.Get("Cache-Control"))
	assert.Contains(t, got.Get("Permissions-Policy"), "camera=(self)")
	assert.Empty(t, got.Get("Strict-Transport-Security"), "HSTS only over TLS")
}

func TestHeaders_HSTSOverTLS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
	req.TLS = &tls.ConnectionState{}

	got := serve(t, DefaultHeadersConfig(), req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", got.Get("Strict-Transport-Security"))
}

func TestHeaders_EmptyValuesAreSkipped(t *testing.T) {
	got := serve(t, HeadersConfig{XFrameOptions: "SAMEORIGIN"}, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "SAMEORIGIN", got.Get("X-Frame-Options"))
	_, present := got["Content-Security-Policy"]
	assert.False(t, present)
}
