package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podreseller_back_end/internal/apperr"
)

func newTestTokens(t *testing.T, now time.Time) *TokenService {
	t.Helper()
	s, err := NewTokenService("test-secret")
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService("")
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestTokens(t, now)

	token, err := s.Issue("buyer@example.com", "Buyer")
	require.NoError(t, err)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, "Buyer", claims.Name)
	assert.True(t, claims.ExpiresAt.Time.Equal(now.Add(time.Hour)))
}

func TestIssueRequiresEmail(t *testing.T) {
	s := newTestTokens(t, time.Now())

	_, err := s.Issue("  ", "nobody")
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := newTestTokens(t, issuedAt).Issue("buyer@example.com", "")
	require.NoError(t, err)

	later := newTestTokens(t, issuedAt.Add(61*time.Minute))
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	other, err := NewTokenService("another-secret")
	require.NoError(t, err)
	token, err := other.Issue("buyer@example.com", "")
	require.NoError(t, err)

	_, err = newTestTokens(t, time.Now()).Verify(token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{
		Email: "buyer@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestTokens(t, time.Now()).Verify(token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := newTestTokens(t, time.Now()).Verify("not-a-token")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
