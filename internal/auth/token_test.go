package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func TestTokenManager_RoundTrip(t *testing.T) {
	t.Parallel()
	m := NewTokenManager(testSecret, time.Hour)

	token, err := m.Issue("3f2a9c4e-1111-2222-3333-444455556666", "a@x.com")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "3f2a9c4e-1111-2222-3333-444455556666", claims.ID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.NotEmpty(t, claims.RegisteredClaims.ID)
}

func TestTokenManager_Expired(t *testing.T) {
	t.Parallel()
	m := NewTokenManager(testSecret, time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := m.Issue("user-1", "a@x.com")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Invalid(t *testing.T) {
	t.Parallel()
	m := NewTokenManager(testSecret, time.Hour)
	other := NewTokenManager("a-completely-different-signing-secret", time.Hour)

	foreign, err := other.Issue("user-1", "a@x.com")
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id": "user-1", "iss": issuer, "aud": audience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"bad signature": foreign,
		"malformed":     "not.a.token",
		"empty":         "",
		"alg none":      noneToken,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.NotErrorIs(t, err, ErrExpiredToken)
		})
	}
}

func TestTokenManager_ExpiredWithBadSignatureIsInvalid(t *testing.T) {
	t.Parallel()
	other := NewTokenManager("a-completely-different-signing-secret", time.Minute)
	other.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := other.Issue("user-1", "a@x.com")
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_MissingSecret(t *testing.T) {
	t.Parallel()
	_, err := NewTokenManager("", time.Hour).Issue("user-1", "a@x.com")
	assert.Error(t, err)
}
