package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/mentionwatch/console/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// Rate limits per endpoint category.
var (
	// RefreshRateLimit applies to manual dashboard refreshes, which fan out
	// to every upstream of the dashboard.
	RefreshRateLimit = RateLimitConfig{
		RequestLimit: 12,
		WindowLength: time.Minute,
	}

	// RunRateLimit applies to automation run requests and toggles.
	RunRateLimit = RateLimitConfig{
		RequestLimit: 10,
		WindowLength: time.Minute,
	}

	// StandardRateLimit applies to read endpoints.
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 120,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP limits by client address.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceeded(cfg)),
	)
}

// RateLimitByPrincipal limits by authenticated subject, falling back to the
// client address. It must run after Auth.
func RateLimitByPrincipal(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByPrincipalOrIP),
		httprate.WithLimitHandler(rateLimitExceeded(cfg)),
	)
}

func keyByPrincipalOrIP(r *http.Request) (string, error) {
	if p, ok := GetPrincipal(r.Context()); ok && p.Subject != "" {
		return "sub:" + p.Subject, nil
	}
	return httprate.KeyByRealIP(r)
}

func rateLimitExceeded(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").
			WithInstance(r.URL.Path).
			Write(w)
	}
}
