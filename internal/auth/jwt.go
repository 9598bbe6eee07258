package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the claims of a console access token. Tokens are issued by the
// backend-as-a-service and signed with the shared HS256 key.
type Claims struct {
	jwt.RegisteredClaims

	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
}

// VerifierConfig holds configuration for a Verifier.
type VerifierConfig struct {
	// SigningKey is the shared HS256 secret.
	SigningKey string

	// Issuer, when set, must match the iss claim.
	Issuer string

	// Audience, when set, must be present in the aud claim.
	Audience string

	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Verifier validates access tokens.
type Verifier struct {
	signingKey []byte
	issuer     string
	audience   string
	parser     *jwt.Parser
	now        func() time.Time
}

// NewVerifier creates a token verifier.
func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		parser:     jwt.NewParser(opts...),
		now:        cfg.Now,
	}
}

// Verify validates tokenString and returns its principal. The role is not
// checked here; see Authorize.
func (v *Verifier) Verify(tokenString string) (Principal, error) {
	if tokenString == "" {
		return Principal{}, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}
	if !token.Valid || claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}

	return Principal{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
	}, nil
}

// Authorize verifies tokenString and requires the admin role.
func (v *Verifier) Authorize(tokenString string) (Principal, error) {
	p, err := v.Verify(tokenString)
	if err != nil {
		return Principal{}, err
	}
	if !p.IsAdmin() {
		return p, ErrForbidden
	}
	return p, nil
}

// Issue signs a token for p valid for ttl. The console never issues tokens
// in production; this serves local tooling and tests.
func (v *Verifier) Issue(p Principal, ttl time.Duration) (string, time.Time, error) {
	now := v.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        tokenID(),
		},
		Role:  p.Role,
		Email: p.Email,
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

func tokenID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
