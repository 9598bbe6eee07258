package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mentionwatch/console/internal/auth"
)

const testSigningKey = "test-secret-key-for-testing-only"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func newTestVerifier() *auth.Verifier {
	return auth.NewVerifier(auth.VerifierConfig{
		SigningKey: testSigningKey,
		Issuer:     "https://auth.mentionwatch.test",
		Audience:   "mentionwatch-console",
	})
}

func issueToken(t *testing.T, v *auth.Verifier, subject, role string, ttl time.Duration) string {
	t.Helper()
	token, _, err := v.Issue(auth.Principal{Subject: subject, Role: role}, ttl)
	require.NoError(t, err)
	return token
}
