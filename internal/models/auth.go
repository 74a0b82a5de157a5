package models

import (
	"time"

	"github.com/google/uuid"
)

type AuthMethod string

const (
	AuthMethodEmail     AuthMethod = "email"
	AuthMethodGoogle    AuthMethod = "google"
	AuthMethodGuest     AuthMethod = "guest"
	AuthMethodBiometric AuthMethod = "biometric"
)

// User is the signed-in identity held in the session slice.
type User struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	IsGuest    bool       `json:"isGuest"`
	PhotoURL   string     `json:"photoURL,omitempty"`
	AuthMethod AuthMethod `json:"authMethod,omitempty"`
}

// Account is a row of the users table.
type Account struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        *string    `json:"email,omitempty" db:"email"`
	PasswordHash *string    `json:"-" db:"password_hash"`
	IsAnonymous  bool       `json:"is_anonymous" db:"is_anonymous"`
	PhotoURL     *string    `json:"photo_url,omitempty" db:"photo_url"`
	OIDCProvider *string    `json:"oidc_provider,omitempty" db:"oidc_provider"`
	OIDCSubject  *string    `json:"-" db:"oidc_subject"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// ToUser projects an account onto the session user shape.
func (a *Account) ToUser(method AuthMethod) User {
	u := User{
		ID:         a.ID.String(),
		Name:       a.Name,
		IsGuest:    a.IsAnonymous,
		AuthMethod: method,
	}
	if a.Email != nil {
		u.Email = *a.Email
	}
	if a.PhotoURL != nil {
		u.PhotoURL = *a.PhotoURL
	}
	if u.Name == "" {
		if a.IsAnonymous {
			u.Name = "Guest User"
		} else {
			u.Name = "User"
		}
	}
	return u
}

type Session struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	DeviceID     string     `json:"device_id" db:"device_id"`
	AuthMethod   AuthMethod `json:"auth_method" db:"auth_method"`
	RefreshToken string     `json:"-" db:"refresh_token"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	UserAgent    *string    `json:"user_agent,omitempty" db:"user_agent"`
	IPAddress    *string    `json:"ip_address,omitempty" db:"ip_address"`
	ExpiresAt    time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastActivity time.Time  `json:"last_activity" db:"last_activity"`
}

type TokenBlacklist struct {
	ID        uuid.UUID `db:"id"`
	TokenJTI  string    `db:"token_jti"`
	UserID    uuid.UUID `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	Reason    string    `db:"reason"`
}

// DeviceCredential backs biometric re-authentication: the device keeps the
// secret behind its biometric prompt, the server keeps a bcrypt hash.
type DeviceCredential struct {
	DeviceID   string     `db:"device_id"`
	UserID     uuid.UUID  `db:"user_id"`
	SecretHash string     `db:"secret_hash"`
	AuthMethod AuthMethod `db:"auth_method"`
	CreatedAt  time.Time  `db:"created_at"`
	LastUsedAt *time.Time `db:"last_used_at"`
}

type DeviceInfo struct {
	DeviceID  string `json:"device_id"`
	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type GoogleSignInRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

type BiometricLoginRequest struct {
	Secret string `json:"secret" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthResponse struct {
	Success bool      `json:"success"`
	Data    *AuthData `json:"data,omitempty"`
}

type AuthData struct {
	TokenPair
	User User `json:"user"`
}

type BiometricEnableResponse struct {
	Success bool   `json:"success"`
	Secret  string `json:"secret"`
}

type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
