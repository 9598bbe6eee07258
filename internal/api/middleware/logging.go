package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/telemetry"
)

// Logger logs one line per request. Server errors log at error level and
// client errors at warn.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusRecorder(w)

			next.ServeHTTP(wrapped, r)

			reqLog := telemetry.Logger(r.Context(), log)
			var event *zerolog.Event
			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				event = reqLog.Error()
			case wrapped.statusCode >= http.StatusBadRequest:
				event = reqLog.Warn()
			default:
				event = reqLog.Info()
			}

			if p, ok := GetPrincipal(r.Context()); ok {
				event = event.Str("subject", p.Subject)
			}

			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Int64("bytes", wrapped.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}
