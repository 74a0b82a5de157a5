package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/utils"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	jwt.RegisteredClaims
	UserID     string            `json:"user_id"`
	Email      string            `json:"email,omitempty"`
	IsGuest    bool              `json:"is_guest"`
	AuthMethod models.AuthMethod `json:"auth_method"`
	SessionID  string            `json:"session_id"`
	DeviceID   string            `json:"device_id"`
	TokenType  string            `json:"token_type"` // "access" or "refresh"
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	Issuer               string
}

// JWTService handles JWT token operations
type JWTService struct {
	config    JWTConfig
	secretKey []byte
	now       func() time.Time
}

func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{
		config:    config,
		secretKey: []byte(config.SecretKey),
		now:       time.Now,
	}
}

// GenerateTokenPair generates both access and refresh tokens for a session.
func (j *JWTService) GenerateTokenPair(user models.User, sessionID uuid.UUID, deviceID string) (*models.TokenPair, error) {
	accessToken, err := j.generateToken(user, sessionID, deviceID, TokenTypeAccess, j.config.AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := j.generateToken(user, sessionID, deviceID, TokenTypeRefresh, j.config.RefreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(j.config.AccessTokenDuration.Seconds()),
	}, nil
}

func (j *JWTService) generateToken(user models.User, sessionID uuid.UUID, deviceID, tokenType string, duration time.Duration) (string, error) {
	now := j.now()
	jti, err := utils.GenerateSecret(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate JTI: %w", err)
	}

	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID,
			Issuer:    j.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			NotBefore: jwt.NewNumericDate(now),
		},
		UserID:     user.ID,
		Email:      user.Email,
		IsGuest:    user.IsGuest,
		AuthMethod: user.AuthMethod,
		SessionID:  sessionID.String(),
		DeviceID:   deviceID,
		TokenType:  tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates and parses a JWT token
func (j *JWTService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithIssuer(j.config.Issuer),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateAccessToken validates an access token specifically
func (j *JWTService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	return j.validateType(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token specifically
func (j *JWTService) ValidateRefreshToken(tokenString string) (*JWTClaims, error) {
	return j.validateType(tokenString, TokenTypeRefresh)
}

func (j *JWTService) validateType(tokenString, want string) (*JWTClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != want {
		return nil, fmt.Errorf("invalid token type, expected %s token", want)
	}
	return claims, nil
}

// ExtractTokenFromBearer extracts token from "Bearer <token>" format
func ExtractTokenFromBearer(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// User rebuilds the session user carried by the claims.
func (c *JWTClaims) User() models.User {
	return models.User{
		ID:         c.UserID,
		Email:      c.Email,
		IsGuest:    c.IsGuest,
		AuthMethod: c.AuthMethod,
	}
}
