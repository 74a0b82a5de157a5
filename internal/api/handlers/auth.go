package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citypulse/server/internal/api/middleware"
	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/services/auth"
	"github.com/citypulse/server/internal/store"
	"github.com/citypulse/server/internal/utils"
)

// Identity is the identity provider the auth endpoints drive.
// *auth.IdentityService implements it.
type Identity interface {
	Login(ctx context.Context, email, password string, device models.DeviceInfo) (*models.AuthData, error)
	SignUp(ctx context.Context, name, email, password string, device models.DeviceInfo) (*models.AuthData, error)
	LoginAsGuest(ctx context.Context, device models.DeviceInfo) (*models.AuthData, error)
	SignInWithGoogle(ctx context.Context, idToken string, device models.DeviceInfo) (*models.AuthData, error)
	EnableBiometric(ctx context.Context, user models.User, deviceID string) (string, error)
	DisableBiometric(ctx context.Context, deviceID string) error
	LoginWithBiometric(ctx context.Context, secret string, device models.DeviceInfo) (*models.AuthData, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthData, error)
	Logout(ctx context.Context, claims *auth.JWTClaims) error
	CurrentUser(ctx context.Context, claims *auth.JWTClaims) (*models.User, error)
}

type AuthHandlers struct {
	identity Identity
}

func NewAuthHandlers(identity Identity) *AuthHandlers {
	return &AuthHandlers{identity: identity}
}

// Login godoc
// @Summary User login with password
// @Description Authenticate user with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 429 {object} models.APIError
// @Router /api/v1/auth/login [post]
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	data, err := h.identity.Login(c.Request.Context(), req.Email, req.Password, deviceInfo(c))
	respondAuth(c, data, err)
}

// SignUp godoc
// @Summary Create an email account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Param request body models.SignUpRequest true "Account details"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Router /api/v1/auth/signup [post]
func (h *AuthHandlers) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	data, err := h.identity.SignUp(c.Request.Context(), req.Name, req.Email, req.Password, deviceInfo(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.AuthResponse{Success: true, Data: data})
}

// Guest godoc
// @Summary Continue as guest
// @Description Opens an anonymous session. Guests cannot keep favorites.
// @Tags Authentication
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} models.AuthResponse
// @Router /api/v1/auth/guest [post]
func (h *AuthHandlers) Guest(c *gin.Context) {
	data, err := h.identity.LoginAsGuest(c.Request.Context(), deviceInfo(c))
	respondAuth(c, data, err)
}

// Google godoc
// @Summary Sign in with a Google ID token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Param request body models.GoogleSignInRequest true "Google ID token"
// @Success 200 {object} models.AuthResponse
// @Failure 401 {object} models.APIError
// @Router /api/v1/auth/google [post]
func (h *AuthHandlers) Google(c *gin.Context) {
	var req models.GoogleSignInRequest
	if !bindJSON(c, &req) {
		return
	}

	data, err := h.identity.SignInWithGoogle(c.Request.Context(), req.IDToken, deviceInfo(c))
	respondAuth(c, data, err)
}

// BiometricLogin godoc
// @Summary Sign in with the device's biometric secret
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Device-ID header string true "Device identifier"
// @Param request body models.BiometricLoginRequest true "Device secret"
// @Success 200 {object} models.AuthResponse
// @Failure 401 {object} models.APIError
// @Router /api/v1/auth/biometric/login [post]
func (h *AuthHandlers) BiometricLogin(c *gin.Context) {
	var req models.BiometricLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	data, err := h.identity.LoginWithBiometric(c.Request.Context(), req.Secret, deviceInfo(c))
	if err == nil {
		middleware.StoreFrom(c).DispatchApp(func(s store.AppState) store.AppState { return s.SetBiometric(true) })
	}
	respondAuth(c, data, err)
}

// RefreshToken godoc
// @Summary Refresh access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} models.AuthResponse
// @Failure 401 {object} models.APIError
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandlers) RefreshToken(c *gin.Context) {
	var req models.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	data, err := h.identity.Refresh(c.Request.Context(), req.RefreshToken)
	respondAuth(c, data, err)
}

// EnableBiometric godoc
// @Summary Enable biometric login on this device
// @Description Returns a secret the device stores behind its biometric prompt.
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} models.BiometricEnableResponse
// @Failure 403 {object} models.APIError
// @Router /api/v1/auth/biometric [post]
func (h *AuthHandlers) EnableBiometric(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	st := middleware.StoreFrom(c)

	secret, err := h.identity.EnableBiometric(c.Request.Context(), claims.User(), st.DeviceID())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	st.DispatchApp(func(s store.AppState) store.AppState { return s.SetBiometric(true) })
	c.JSON(http.StatusOK, models.BiometricEnableResponse{Success: true, Secret: secret})
}

// DisableBiometric godoc
// @Summary Disable biometric login on this device
// @Tags Authentication
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Success 204
// @Router /api/v1/auth/biometric [delete]
func (h *AuthHandlers) DisableBiometric(c *gin.Context) {
	st := middleware.StoreFrom(c)

	if err := h.identity.DisableBiometric(c.Request.Context(), st.DeviceID()); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	st.DispatchApp(func(s store.AppState) store.AppState { return s.SetBiometric(false) })
	c.Status(http.StatusNoContent)
}

// Logout godoc
// @Summary Log out the current session
// @Tags Authentication
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Success 204
// @Router /api/v1/auth/logout [post]
func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.identity.Logout(c.Request.Context(), middleware.ClaimsFrom(c)); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Param X-Device-ID header string true "Device identifier"
// @Success 200 {object} models.User
// @Failure 401 {object} models.APIError
// @Router /api/v1/auth/me [get]
func (h *AuthHandlers) Me(c *gin.Context) {
	user, err := h.identity.CurrentUser(c.Request.Context(), middleware.ClaimsFrom(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func respondAuth(c *gin.Context, data *models.AuthData, err error) {
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{Success: true, Data: data})
}

func deviceInfo(c *gin.Context) models.DeviceInfo {
	return models.DeviceInfo{
		DeviceID:  c.GetHeader(middleware.DeviceIDHeader),
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}
}

// bindJSON decodes the body into req and writes a 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.LogDebug(c.Request.Context(), "Invalid request body", utils.Fields{"error": err.Error()})
		c.AbortWithStatusJSON(http.StatusBadRequest, models.APIError{
			Error:   string(utils.ErrorCodeValidationError),
			Message: "Invalid request format",
			Details: err.Error(),
		})
		return false
	}
	return true
}
