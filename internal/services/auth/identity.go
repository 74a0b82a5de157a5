package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/citypulse/server/internal/database"
	"github.com/citypulse/server/internal/metrics"
	"github.com/citypulse/server/internal/models"
	"github.com/citypulse/server/internal/utils"
)

const deviceSecretBytes = 32

// IDTokenVerifier validates third-party ID tokens. *GoogleVerifier
// implements it.
type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

// IdentityService is the identity provider behind the auth endpoints. Every
// successful sign-in or sign-out is published on the notifier.
type IdentityService struct {
	repo     Repository
	sessions *SessionService
	google   IDTokenVerifier
	notifier *Notifier
	now      func() time.Time
}

func NewIdentityService(repo Repository, sessions *SessionService, google IDTokenVerifier, notifier *Notifier) *IdentityService {
	return &IdentityService{
		repo:     repo,
		sessions: sessions,
		google:   google,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *IdentityService) Notifier() *Notifier {
	return s.notifier
}

// Login signs in with email and password.
func (s *IdentityService) Login(ctx context.Context, email, password string, device models.DeviceInfo) (*models.AuthData, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, s.fail(models.AuthMethodEmail, utils.NewDatabaseError(err))
	}
	if account == nil || account.PasswordHash == nil {
		return nil, s.fail(models.AuthMethodEmail, utils.NewInvalidCredentialsError(""))
	}
	if err := utils.VerifyPassword(password, *account.PasswordHash); err != nil {
		return nil, s.fail(models.AuthMethodEmail, utils.NewInvalidCredentialsError(""))
	}

	return s.open(ctx, account, models.AuthMethodEmail, device)
}

// SignUp creates an email account and signs it in.
func (s *IdentityService) SignUp(ctx context.Context, name, email, password string, device models.DeviceInfo) (*models.AuthData, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, utils.NewValidationError("Name is required", map[string]interface{}{"field": "name"})
	}
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, utils.NewValidationError(err.Error(), map[string]interface{}{"field": "password"})
	}

	account := &models.Account{
		Name:         name,
		Email:        &email,
		PasswordHash: &hash,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, s.fail(models.AuthMethodEmail, utils.NewEmailTakenError(email))
		}
		return nil, s.fail(models.AuthMethodEmail, utils.NewDatabaseError(err))
	}

	return s.open(ctx, account, models.AuthMethodEmail, device)
}

// LoginAsGuest creates an anonymous account. Guests never own favorites.
func (s *IdentityService) LoginAsGuest(ctx context.Context, device models.DeviceInfo) (*models.AuthData, error) {
	account := &models.Account{
		Name:        "Guest User",
		IsAnonymous: true,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, s.fail(models.AuthMethodGuest, utils.NewDatabaseError(err))
	}

	return s.open(ctx, account, models.AuthMethodGuest, device)
}

// SignInWithGoogle verifies a Google ID token and signs in the matching
// account, linking or creating one on first use.
func (s *IdentityService) SignInWithGoogle(ctx context.Context, idToken string, device models.DeviceInfo) (*models.AuthData, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, utils.NewValidationError("ID token is required", map[string]interface{}{"field": "id_token"})
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		utils.LogWarn(ctx, "Google token verification failed", utils.Fields{"error": err.Error()})
		return nil, s.fail(models.AuthMethodGoogle, utils.NewInvalidCredentialsError("Google sign-in failed. Please try again."))
	}

	account, err := s.repo.GetAccountByOIDC(ctx, googleProvider, identity.Subject)
	if err != nil {
		return nil, s.fail(models.AuthMethodGoogle, utils.NewDatabaseError(err))
	}

	if account == nil && identity.EmailVerified && identity.Email != "" {
		account, err = s.repo.GetAccountByEmail(ctx, normalizeEmail(identity.Email))
		if err != nil {
			return nil, s.fail(models.AuthMethodGoogle, utils.NewDatabaseError(err))
		}
		if account != nil {
			photo := optional(identity.Picture)
			if err := s.repo.LinkOIDC(ctx, account.ID, googleProvider, identity.Subject, photo); err != nil {
				return nil, s.fail(models.AuthMethodGoogle, utils.NewDatabaseError(err))
			}
			if photo != nil {
				account.PhotoURL = photo
			}
		}
	}

	if account == nil {
		provider, subject := googleProvider, identity.Subject
		account = &models.Account{
			Name:         identity.Name,
			PhotoURL:     optional(identity.Picture),
			OIDCProvider: &provider,
			OIDCSubject:  &subject,
		}
		if identity.EmailVerified && identity.Email != "" {
			email := normalizeEmail(identity.Email)
			account.Email = &email
		}
		if err := s.repo.CreateAccount(ctx, account); err != nil {
			if errors.Is(err, database.ErrDuplicateEmail) {
				return nil, s.fail(models.AuthMethodGoogle, utils.NewEmailTakenError(identity.Email))
			}
			return nil, s.fail(models.AuthMethodGoogle, utils.NewDatabaseError(err))
		}
	}

	return s.open(ctx, account, models.AuthMethodGoogle, device)
}

// EnableBiometric issues a device secret for biometric re-authentication.
// The device keeps the secret behind its biometric prompt; only its hash is
// stored.
func (s *IdentityService) EnableBiometric(ctx context.Context, user models.User, deviceID string) (string, error) {
	if user.IsGuest {
		return "", utils.NewGuestNotAllowedError()
	}
	if deviceID == "" {
		return "", utils.NewMissingDeviceIDError()
	}
	account, err := s.accountFor(ctx, user.ID)
	if err != nil {
		return "", err
	}

	secret, err := utils.GenerateSecret(deviceSecretBytes)
	if err != nil {
		return "", utils.AsAppError(err)
	}
	hash, err := utils.HashSecret(secret)
	if err != nil {
		return "", utils.AsAppError(err)
	}

	method := user.AuthMethod
	if method == "" || method == models.AuthMethodBiometric {
		method = models.AuthMethodEmail
	}

	if err := s.repo.UpsertDeviceCredential(ctx, &models.DeviceCredential{
		DeviceID:   deviceID,
		UserID:     account.ID,
		SecretHash: hash,
		AuthMethod: method,
		CreatedAt:  s.now(),
	}); err != nil {
		return "", utils.NewDatabaseError(err)
	}

	utils.LogInfo(ctx, "Biometric login enabled", utils.Fields{"user_id": user.ID})
	return secret, nil
}

func (s *IdentityService) DisableBiometric(ctx context.Context, deviceID string) error {
	if err := s.repo.DeleteDeviceCredential(ctx, deviceID); err != nil {
		return utils.NewDatabaseError(err)
	}
	return nil
}

// LoginWithBiometric signs in the account bound to the device credential.
func (s *IdentityService) LoginWithBiometric(ctx context.Context, secret string, device models.DeviceInfo) (*models.AuthData, error) {
	if device.DeviceID == "" {
		return nil, utils.NewMissingDeviceIDError()
	}
	if secret == "" {
		return nil, utils.NewValidationError("Secret is required", map[string]interface{}{"field": "secret"})
	}

	cred, err := s.repo.GetDeviceCredential(ctx, device.DeviceID)
	if err != nil {
		return nil, s.fail(models.AuthMethodBiometric, utils.NewDatabaseError(err))
	}
	if cred == nil {
		return nil, s.fail(models.AuthMethodBiometric, utils.NewInvalidCredentialsError("Biometric login is not enabled on this device"))
	}
	if err := utils.VerifyPassword(secret, cred.SecretHash); err != nil {
		return nil, s.fail(models.AuthMethodBiometric, utils.NewInvalidCredentialsError("Biometric authentication failed"))
	}

	account, err := s.repo.GetAccountByID(ctx, cred.UserID)
	if err != nil {
		return nil, s.fail(models.AuthMethodBiometric, utils.NewDatabaseError(err))
	}
	if account == nil {
		return nil, s.fail(models.AuthMethodBiometric, utils.NewInvalidCredentialsError("Biometric authentication failed"))
	}

	if err := s.repo.MarkDeviceCredentialUsed(ctx, device.DeviceID); err != nil {
		utils.LogWarn(ctx, "Failed to record biometric use", utils.Fields{"error": err.Error()})
	}

	return s.open(ctx, account, models.AuthMethodBiometric, device)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*models.AuthData, error) {
	tokens, user, err := s.sessions.RefreshSession(ctx, refreshToken)
	if err != nil {
		utils.LogDebug(ctx, "Token refresh rejected", utils.Fields{"error": err.Error()})
		return nil, utils.NewUnauthorizedError()
	}
	return &models.AuthData{TokenPair: *tokens, User: *user}, nil
}

// Logout revokes the session behind claims and announces the sign-out for
// its device.
func (s *IdentityService) Logout(ctx context.Context, claims *JWTClaims) error {
	if err := s.sessions.RevokeSession(ctx, claims, "logout"); err != nil {
		return utils.NewDatabaseError(err)
	}

	s.publish(ctx, StateChange{DeviceID: claims.DeviceID})
	utils.LogInfo(ctx, "User logged out", utils.Fields{"user_id": claims.UserID})
	return nil
}

// CurrentUser returns the user of a live session.
func (s *IdentityService) CurrentUser(ctx context.Context, claims *JWTClaims) (*models.User, error) {
	session, err := s.sessions.ValidateSession(ctx, claims)
	if err != nil {
		return nil, utils.NewUnauthorizedError()
	}
	account, err := s.repo.GetAccountByID(ctx, session.UserID)
	if err != nil {
		return nil, utils.NewDatabaseError(err)
	}
	if account == nil {
		return nil, utils.NewUnauthorizedError()
	}
	user := account.ToUser(session.AuthMethod)
	return &user, nil
}

// ValidateAccess authenticates a bearer access token against its session.
func (s *IdentityService) ValidateAccess(ctx context.Context, token string) (*JWTClaims, error) {
	claims, err := s.sessions.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.ValidateSession(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *IdentityService) open(ctx context.Context, account *models.Account, method models.AuthMethod, device models.DeviceInfo) (*models.AuthData, error) {
	user := account.ToUser(method)

	tokens, err := s.sessions.CreateSession(ctx, user, device)
	if err != nil {
		return nil, s.fail(method, utils.NewDatabaseError(err))
	}

	if err := s.repo.TouchLastLogin(ctx, account.ID); err != nil {
		utils.LogWarn(ctx, "Failed to update last login", utils.Fields{"error": err.Error()})
	}

	s.publish(ctx, StateChange{DeviceID: device.DeviceID, User: &user})
	metrics.RecordLogin(string(method), nil)
	utils.LogInfo(ctx, "User signed in", utils.Fields{
		"user_id":     user.ID,
		"auth_method": method,
	})

	return &models.AuthData{TokenPair: *tokens, User: user}, nil
}

func (s *IdentityService) publish(ctx context.Context, change StateChange) {
	if s.notifier == nil || change.DeviceID == "" {
		return
	}
	if err := s.notifier.Publish(ctx, change); err != nil {
		utils.LogWarn(ctx, "Auth state change not fully delivered", utils.Fields{"error": err.Error()})
	}
}

func (s *IdentityService) accountFor(ctx context.Context, userID string) (*models.Account, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, utils.NewUnauthorizedError()
	}
	account, err := s.repo.GetAccountByID(ctx, id)
	if err != nil {
		return nil, utils.NewDatabaseError(err)
	}
	if account == nil {
		return nil, utils.NewUnauthorizedError()
	}
	return account, nil
}

func (s *IdentityService) fail(method models.AuthMethod, err *utils.AppError) error {
	metrics.RecordLogin(string(method), err)
	return err
}

func validateCredentials(email, password string) error {
	if email == "" {
		return utils.NewValidationError("Email is required", map[string]interface{}{"field": "email"})
	}
	if !utils.IsValidEmail(email) {
		return utils.NewValidationError("Please enter a valid email address", map[string]interface{}{"field": "email"})
	}
	if password == "" {
		return utils.NewValidationError("Password is required", map[string]interface{}{"field": "password"})
	}
	if len(password) < utils.MinPasswordLength {
		return utils.NewValidationError("Password must be at least 6 characters", map[string]interface{}{"field": "password"})
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
