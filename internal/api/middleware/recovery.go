package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/api/models"
)

// Recovery turns a handler panic into a 500 problem response.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					requestID := GetRequestID(r.Context())

					log.Error().
						Str("request_id", requestID).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Interface("panic", rec).
						Str("stack", string(debug.Stack())).
						Msg("panic recovered")

					models.NewInternalError(requestID, "an unexpected error occurred").
						WithInstance(r.URL.Path).
						Write(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
