package auth_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Odiabackend099/voxanne-console/internal/auth"
	apperrors "github.com/Odiabackend099/voxanne-console/internal/core/errors"
)

const testSecret = "test-secret-key-for-verifier-tests"

func signToken(t *testing.T, secret string, payload jwt.MapClaims) string {
	t.Helper()
	if _, ok := payload["exp"]; !ok {
		payload["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(auth.Config{Secret: testSecret}, slog.Default())
	require.NoError(t, err)
	return v
}

func TestVerifier_Verify(t *testing.T) {
	orgID := "3f1c8a9e-4b2d-4e6f-9a1b-2c3d4e5f6a7b"

	t.Run("valid token with admin-set org claim", func(t *testing.T) {
		v := newVerifier(t)
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub":          "user-1",
			"email":        "dr.smith@clinic.example",
			"app_metadata": map[string]any{"org_id": orgID},
		})

		claims, err := v.Verify(token)

		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "dr.smith@clinic.example", claims.Email)
		assert.Equal(t, orgID, claims.OrgID)
		assert.Equal(t, token, claims.Token)
	})

	t.Run("user_metadata org_id is never consulted", func(t *testing.T) {
		v := newVerifier(t)
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub":           "user-2",
			"user_metadata": map[string]any{"org_id": orgID},
		})

		claims, err := v.Verify(token)

		require.NoError(t, err)
		assert.Empty(t, claims.OrgID, "user-writable metadata must not supply the org id")
	})

	t.Run("user_metadata cannot override app_metadata", func(t *testing.T) {
		v := newVerifier(t)
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub":           "user-3",
			"app_metadata":  map[string]any{"org_id": orgID},
			"user_metadata": map[string]any{"org_id": "11111111-1111-1111-1111-111111111111"},
		})

		claims, err := v.Verify(token)

		require.NoError(t, err)
		assert.Equal(t, orgID, claims.OrgID)
	})

	t.Run("expired token", func(t *testing.T) {
		v := newVerifier(t)
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": "user-4",
			"exp": time.Now().Add(-time.Minute).Unix(),
		})

		claims, err := v.Verify(token)

		assert.Nil(t, claims)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		v := newVerifier(t)
		token := signToken(t, "some-other-secret", jwt.MapClaims{"sub": "user-5"})

		_, err := v.Verify(token)

		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		v := newVerifier(t)

		_, err := v.Verify("not.a.token")

		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		v, err := auth.NewVerifier(auth.Config{Secret: testSecret, Issuer: "https://auth.voxanne.ai"}, slog.Default())
		require.NoError(t, err)

		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": "user-6",
			"iss": "https://evil.example",
		})

		_, err = v.Verify(token)

		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}

func TestNewVerifier_RequiresMode(t *testing.T) {
	_, err := auth.NewVerifier(auth.Config{}, slog.Default())
	assert.Error(t, err)
}
