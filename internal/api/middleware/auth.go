package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/citypulse/server/internal/services/auth"
	"github.com/citypulse/server/internal/utils"
)

const claimsKey = "auth_claims"

// AccessValidator authenticates bearer tokens. *auth.IdentityService
// implements it.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, token string) (*auth.JWTClaims, error)
}

// JWTAuthMiddleware requires a valid access token whose session is still
// live. A token bound to another device is rejected. Claims already attached
// by OptionalJWTAuthMiddleware are reused.
func JWTAuthMiddleware(validator AccessValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ClaimsFrom(c) != nil {
			c.Next()
			return
		}
		claims, ok := authenticate(c, validator)
		if !ok {
			AbortWithError(c, utils.NewUnauthorizedError())
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalJWTAuthMiddleware attaches claims when a valid token is present and
// lets the request through either way.
func OptionalJWTAuthMiddleware(validator AccessValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := authenticate(c, validator); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, validator AccessValidator) (*auth.JWTClaims, bool) {
	token := auth.ExtractTokenFromBearer(c.GetHeader("Authorization"))
	if token == "" {
		return nil, false
	}

	ctx := c.Request.Context()
	claims, err := validator.ValidateAccess(ctx, token)
	if err != nil {
		utils.LogDebug(ctx, "Access token rejected", utils.Fields{"error": err.Error()})
		return nil, false
	}

	if deviceID := c.GetHeader(DeviceIDHeader); deviceID != "" && claims.DeviceID != deviceID {
		utils.LogWarn(ctx, "Access token presented from another device", utils.Fields{"user_id": claims.UserID})
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims *auth.JWTClaims) {
	c.Set(claimsKey, claims)
	c.Set("user_id", claims.UserID)
}

// ClaimsFrom returns the claims attached by the JWT middlewares, or nil.
func ClaimsFrom(c *gin.Context) *auth.JWTClaims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.JWTClaims); ok {
			return claims
		}
	}
	return nil
}
