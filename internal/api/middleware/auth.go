package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mentionwatch/console/internal/api/models"
	"github.com/mentionwatch/console/internal/auth"
)

type principalKey struct{}

// Auth requires an admin bearer token. Missing or invalid tokens get 401,
// valid tokens without the admin role get 403.
func Auth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthProblem(w, r, models.NewUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeAuthProblem(w, r, models.NewUnauthorized, "invalid authorization header format")
				return
			}

			token := strings.TrimSpace(authHeader[len(bearerPrefix):])
			if token == "" {
				writeAuthProblem(w, r, models.NewUnauthorized, "missing bearer token")
				return
			}

			principal, err := verifier.Authorize(token)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrForbidden):
				writeAuthProblem(w, r, models.NewForbidden, "admin role required")
				return
			case errors.Is(err, auth.ErrTokenExpired):
				writeAuthProblem(w, r, models.NewUnauthorized, "access token has expired")
				return
			default:
				writeAuthProblem(w, r, models.NewUnauthorized, "invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// The response package imports middleware, so problems are written here.
func writeAuthProblem(w http.ResponseWriter, r *http.Request, build func(traceID, detail string) *models.Problem, detail string) {
	build(GetRequestID(r.Context()), detail).WithInstance(r.URL.Path).Write(w)
}

// GetPrincipal returns the authenticated principal stored in ctx.
func GetPrincipal(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}
