package middleware

import (
	"mime"
	"net/http"

	"github.com/mentionwatch/console/internal/api/models"
)

// ContentTypeJSON defaults the response Content-Type to application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects request bodies that are declared as anything other
// than JSON. Requests without a Content-Type pass.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if ct := r.Header.Get("Content-Type"); ct != "" {
				mediaType, _, err := mime.ParseMediaType(ct)
				if err != nil || mediaType != "application/json" {
					models.NewUnsupportedMediaType(GetRequestID(r.Context()), "Content-Type must be application/json").
						WithInstance(r.URL.Path).
						Write(w)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
