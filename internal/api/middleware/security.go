package middleware

import (
	"net/http"

	"github.com/mentionwatch/console/internal/api/models"
)

// SecurityHeaders sets the response headers expected of an admin API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects requests that a proxy reports as plain HTTP. It is a
// no-op when enabled is false.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && proto != "https" {
				models.NewProblem(models.ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, GetRequestID(r.Context())).
					WithDetail("This endpoint requires HTTPS").
					WithInstance(r.URL.Path).
					Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
