package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypulse/server/internal/models"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:            "test-secret-key-that-is-long-enough-for-hs256",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 24 * time.Hour,
		Issuer:               "citypulse-test",
	}
}

func TestJWT_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	user := models.User{ID: uuid.NewString(), Email: "a@b.co", AuthMethod: models.AuthMethodEmail}
	sessionID := uuid.New()

	pair, err := svc.GenerateTokenPair(user, sessionID, "device-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, 900, pair.ExpiresIn)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, "device-1", claims.DeviceID)
	assert.Equal(t, models.AuthMethodEmail, claims.AuthMethod)
	assert.Equal(t, user, claims.User())

	refresh, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, refresh.ID)
}

func TestJWT_RejectsWrongTokenType(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	pair, err := svc.GenerateTokenPair(models.User{ID: uuid.NewString()}, uuid.New(), "d")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.Error(t, err)
	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestJWT_RejectsExpiredToken(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	issued := time.Now()
	svc.now = func() time.Time { return issued }

	pair, err := svc.GenerateTokenPair(models.User{ID: uuid.NewString()}, uuid.New(), "d")
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(time.Hour) }
	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestJWT_RejectsForeignSignature(t *testing.T) {
	other := testJWTConfig()
	other.SecretKey = "a-completely-different-secret-key-for-signing"
	pair, err := NewJWTService(other).GenerateTokenPair(models.User{ID: uuid.NewString()}, uuid.New(), "d")
	require.NoError(t, err)

	_, err = NewJWTService(testJWTConfig()).ValidateAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestExtractTokenFromBearer(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromBearer("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromBearer("bearer abc"))
	assert.Empty(t, ExtractTokenFromBearer("abc"))
	assert.Empty(t, ExtractTokenFromBearer(""))
}
