// Package auth verifies the bearer tokens presented to the admin console.
package auth

import "errors"

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrTokenExpired = errors.New("access token has expired")
	ErrForbidden    = errors.New("admin role required")
)

// RoleAdmin is the only role allowed to use the console API.
const RoleAdmin = "admin"

// Principal is the verified identity behind a request.
type Principal struct {
	Subject string
	Email   string
	Role    string
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
