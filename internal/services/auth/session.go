package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/citypulse/server/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionInactive = errors.New("session is not active")
	ErrSessionExpired  = errors.New("session has expired")
	ErrTokenRevoked    = errors.New("token has been revoked")
)

// Repository is the persistence the identity services need. *database.PostgresDB
// implements it.
type Repository interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByOIDC(ctx context.Context, provider, subject string) (*models.Account, error)
	LinkOIDC(ctx context.Context, id uuid.UUID, provider, subject string, photoURL *string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error

	CreateSession(ctx context.Context, s *models.Session) error
	GetSessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	RotateRefreshToken(ctx context.Context, id uuid.UUID, refreshToken string) error
	RevokeSession(ctx context.Context, sessionID uuid.UUID, entry *models.TokenBlacklist) error
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
	CleanupExpiredAuthData(ctx context.Context) (int64, error)

	UpsertDeviceCredential(ctx context.Context, c *models.DeviceCredential) error
	GetDeviceCredential(ctx context.Context, deviceID string) (*models.DeviceCredential, error)
	MarkDeviceCredentialUsed(ctx context.Context, deviceID string) error
	DeleteDeviceCredential(ctx context.Context, deviceID string) error
}

// SessionService handles session management operations
type SessionService struct {
	repo Repository
	jwt  *JWTService
	now  func() time.Time
}

func NewSessionService(repo Repository, jwtService *JWTService) *SessionService {
	return &SessionService{
		repo: repo,
		jwt:  jwtService,
		now:  time.Now,
	}
}

// CreateSession opens a session for user on the given device and returns its
// token pair.
func (s *SessionService) CreateSession(ctx context.Context, user models.User, device models.DeviceInfo) (*models.TokenPair, error) {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	sessionID := uuid.New()
	tokenPair, err := s.jwt.GenerateTokenPair(user, sessionID, device.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	now := s.now()
	session := &models.Session{
		ID:           sessionID,
		UserID:       userID,
		DeviceID:     device.DeviceID,
		AuthMethod:   user.AuthMethod,
		RefreshToken: tokenPair.RefreshToken,
		IsActive:     true,
		ExpiresAt:    now.Add(s.jwt.config.RefreshTokenDuration),
		CreatedAt:    now,
		LastActivity: now,
	}
	if device.UserAgent != "" {
		session.UserAgent = &device.UserAgent
	}
	if device.IPAddress != "" {
		session.IPAddress = &device.IPAddress
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return tokenPair, nil
}

// ValidateSession checks that the token is not revoked and that its session
// is still active.
func (s *SessionService) ValidateSession(ctx context.Context, claims *JWTClaims) (*models.Session, error) {
	revoked, err := s.repo.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID in token: %w", err)
	}

	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if !session.IsActive {
		return nil, ErrSessionInactive
	}
	if session.ExpiresAt.Before(s.now()) {
		return nil, ErrSessionExpired
	}

	return session, nil
}

// RefreshSession exchanges a refresh token for a new pair. The presented
// refresh token must be the latest one issued for its session.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (*models.TokenPair, *models.User, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	session, err := s.ValidateSession(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	if session.RefreshToken != refreshToken {
		return nil, nil, errors.New("refresh token mismatch")
	}

	account, err := s.repo.GetAccountByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if account == nil {
		return nil, nil, errors.New("user not found")
	}

	user := account.ToUser(session.AuthMethod)
	tokenPair, err := s.jwt.GenerateTokenPair(user, session.ID, session.DeviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate new tokens: %w", err)
	}

	if err := s.repo.RotateRefreshToken(ctx, session.ID, tokenPair.RefreshToken); err != nil {
		return nil, nil, fmt.Errorf("failed to update session: %w", err)
	}

	return tokenPair, &user, nil
}

// RevokeSession ends the session behind claims and blacklists the token until
// it would have expired anyway.
func (s *SessionService) RevokeSession(ctx context.Context, claims *JWTClaims, reason string) error {
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return fmt.Errorf("invalid session ID in token: %w", err)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return fmt.Errorf("invalid user ID in token: %w", err)
	}

	expiresAt := s.now().Add(s.jwt.config.AccessTokenDuration)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return s.repo.RevokeSession(ctx, sessionID, &models.TokenBlacklist{
		ID:        uuid.New(),
		TokenJTI:  claims.ID,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
		Reason:    reason,
	})
}

// CleanupExpiredSessions removes expired sessions and blacklisted tokens
func (s *SessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.CleanupExpiredAuthData(ctx)
}
