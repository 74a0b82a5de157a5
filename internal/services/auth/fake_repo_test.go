package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citypulse/server/internal/database"
	"github.com/citypulse/server/internal/models"
)

type fakeRepo struct {
	mu          sync.Mutex
	accounts    map[uuid.UUID]*models.Account
	sessions    map[uuid.UUID]*models.Session
	blacklist   map[string]models.TokenBlacklist
	credentials map[string]*models.DeviceCredential
	failOn      map[string]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts:    make(map[uuid.UUID]*models.Account),
		sessions:    make(map[uuid.UUID]*models.Session),
		blacklist:   make(map[string]models.TokenBlacklist),
		credentials: make(map[string]*models.DeviceCredential),
		failOn:      make(map[string]error),
	}
}

func (f *fakeRepo) CreateAccount(_ context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn["CreateAccount"]; err != nil {
		return err
	}
	if a.Email != nil {
		for _, existing := range f.accounts {
			if existing.Email != nil && strings.EqualFold(*existing.Email, *a.Email) {
				return database.ErrDuplicateEmail
			}
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	f.accounts[a.ID] = &stored
	return nil
}

func (f *fakeRepo) GetAccountByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn["GetAccountByEmail"]; err != nil {
		return nil, err
	}
	for _, a := range f.accounts {
		if a.Email != nil && strings.EqualFold(*a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetAccountByOIDC(_ context.Context, provider, subject string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.OIDCProvider != nil && *a.OIDCProvider == provider && a.OIDCSubject != nil && *a.OIDCSubject == subject {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) LinkOIDC(_ context.Context, id uuid.UUID, provider, subject string, photoURL *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return fmt.Errorf("account %s not found", id)
	}
	a.OIDCProvider = &provider
	a.OIDCSubject = &subject
	if photoURL != nil {
		a.PhotoURL = photoURL
	}
	return nil
}

func (f *fakeRepo) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		now := time.Now()
		a.LastLoginAt = &now
	}
	return nil
}

func (f *fakeRepo) CreateSession(_ context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn["CreateSession"]; err != nil {
		return err
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeRepo) GetSessionByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) RotateRefreshToken(_ context.Context, id uuid.UUID, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || !s.IsActive {
		return fmt.Errorf("session %s is not active", id)
	}
	s.RefreshToken = refreshToken
	return nil
}

func (f *fakeRepo) RevokeSession(_ context.Context, sessionID uuid.UUID, entry *models.TokenBlacklist) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.IsActive = false
	}
	if entry != nil {
		f.blacklist[entry.TokenJTI] = *entry
	}
	return nil
}

func (f *fakeRepo) IsTokenBlacklisted(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blacklist[jti]
	return ok, nil
}

func (f *fakeRepo) CleanupExpiredAuthData(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	now := time.Now()
	for id, s := range f.sessions {
		if !s.IsActive || s.ExpiresAt.Before(now) {
			delete(f.sessions, id)
			removed++
		}
	}
	for jti, e := range f.blacklist {
		if e.ExpiresAt.Before(now) {
			delete(f.blacklist, jti)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeRepo) UpsertDeviceCredential(_ context.Context, c *models.DeviceCredential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.credentials[c.DeviceID] = &cp
	return nil
}

func (f *fakeRepo) GetDeviceCredential(_ context.Context, deviceID string) (*models.DeviceCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.credentials[deviceID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) MarkDeviceCredentialUsed(_ context.Context, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.credentials[deviceID]; ok {
		now := time.Now()
		c.LastUsedAt = &now
	}
	return nil
}

func (f *fakeRepo) DeleteDeviceCredential(_ context.Context, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.credentials, deviceID)
	return nil
}
