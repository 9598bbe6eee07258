package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/mentionwatch/console/internal/api/middleware"
)

func TestSecurityHeaders(t *testing.T) {
	rec := serve(middleware.SecurityHeaders(okHandler), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestRequireTLS(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	plain.Header.Set("X-Forwarded-Proto", "http")

	assert.Equal(t, http.StatusOK, serve(middleware.RequireTLS(false)(okHandler), plain).Code)

	rec := serve(middleware.RequireTLS(true)(okHandler), plain)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "tls-required")

	secure := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	secure.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, http.StatusOK, serve(middleware.RequireTLS(true)(okHandler), secure).Code)
}

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		contentType string
		status      int
	}{
		{"", http.StatusOK},
		{"application/json", http.StatusOK},
		{"application/json; charset=utf-8", http.StatusOK},
		{"text/plain", http.StatusUnsupportedMediaType},
		{"application/jsonx", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPut, "/v1/automation/usr_1/enabled", strings.NewReader(`{"enabled":true}`))
		if tt.contentType != "" {
			req.Header.Set("Content-Type", tt.contentType)
		}
		assert.Equal(t, tt.status, serve(middleware.RequireJSON(okHandler), req).Code, tt.contentType)
	}
}

func TestContentTypeJSON_DoesNotOverride(t *testing.T) {
	handler := middleware.ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = serve(middleware.ContentTypeJSON(okHandler), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.RequestID(middleware.Recovery(zerolog.New(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/v1/dashboards", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal-error")
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "boom")
}
