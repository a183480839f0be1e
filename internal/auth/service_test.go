package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keikapi/AIApp/internal/config"
	"github.com/keikapi/AIApp/internal/models"
)

func newTokenService() *Service {
	return NewService(nil, nil, config.AuthConfig{
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
	})
}

func TestMintAndParseToken(t *testing.T) {
	svc := newTokenService()
	user := &models.User{ID: uuid.New(), Email: "alice@example.com"}

	token, err := svc.mintToken(user, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestParseTokenExpired(t *testing.T) {
	svc := newTokenService()
	user := &models.User{ID: uuid.New(), Email: "alice@example.com"}

	token, err := svc.mintToken(user, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenWrongSecret(t *testing.T) {
	other := NewService(nil, nil, config.AuthConfig{JWTSecret: "different-secret"})
	user := &models.User{ID: uuid.New(), Email: "alice@example.com"}

	token, err := other.mintToken(user, time.Hour)
	require.NoError(t, err)

	_, err = newTokenService().ParseToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsUnsignedAlgorithm(t *testing.T) {
	claims := Claims{
		Email: "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTokenService().ParseToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := newTokenService().ParseToken("not.a.token")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestConfirmationCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := confirmationCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
		seen[code] = true
	}
	// Six random digits should not collide twenty times in a row.
	assert.Greater(t, len(seen), 1)
}
