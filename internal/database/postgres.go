package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citypulse/server/internal/config"
	"github.com/citypulse/server/internal/models"
)

// ErrDuplicateEmail is returned when an account with the same email exists.
var ErrDuplicateEmail = errors.New("email already registered")

const uniqueViolation = "23505"

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(cfg *config.PostgresConfig) (*PostgresDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	// Build connection string
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pgdb := &PostgresDB{pool: pool}

	if err := pgdb.createTables(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pgdb, nil
}

func (p *PostgresDB) createTables(ctx context.Context) error {
	createUsersTable := `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL DEFAULT '',
			email VARCHAR(320) UNIQUE,
			password_hash VARCHAR(255),
			is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
			photo_url VARCHAR(1000),
			oidc_provider VARCHAR(50),
			oidc_subject VARCHAR(255),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			last_login_at TIMESTAMP WITH TIME ZONE
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_oidc ON users(oidc_provider, oidc_subject)
			WHERE oidc_subject IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_users_is_anonymous ON users(is_anonymous);
	`

	if _, err := p.pool.Exec(ctx, createUsersTable); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	createSessionsTable := `
		CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			device_id VARCHAR(255) NOT NULL,
			auth_method VARCHAR(20) NOT NULL,
			refresh_token TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			user_agent TEXT,
			ip_address VARCHAR(64),
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			last_activity TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_device_id ON sessions(device_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	`

	if _, err := p.pool.Exec(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	createBlacklistTable := `
		CREATE TABLE IF NOT EXISTS token_blacklist (
			id UUID PRIMARY KEY,
			token_jti VARCHAR(255) UNIQUE NOT NULL,
			user_id UUID NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			reason VARCHAR(100)
		);

		CREATE INDEX IF NOT EXISTS idx_token_blacklist_expires_at ON token_blacklist(expires_at);
	`

	if _, err := p.pool.Exec(ctx, createBlacklistTable); err != nil {
		return fmt.Errorf("failed to create token_blacklist table: %w", err)
	}

	createDeviceCredentialsTable := `
		CREATE TABLE IF NOT EXISTS device_credentials (
			device_id VARCHAR(255) PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			secret_hash VARCHAR(255) NOT NULL,
			auth_method VARCHAR(20) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			last_used_at TIMESTAMP WITH TIME ZONE
		);

		CREATE INDEX IF NOT EXISTS idx_device_credentials_user_id ON device_credentials(user_id);
	`

	if _, err := p.pool.Exec(ctx, createDeviceCredentialsTable); err != nil {
		return fmt.Errorf("failed to create device_credentials table: %w", err)
	}

	// Create update trigger for updated_at
	createTrigger := `
		CREATE OR REPLACE FUNCTION update_updated_at_column()
		RETURNS TRIGGER AS $$
		BEGIN
			NEW.updated_at = CURRENT_TIMESTAMP;
			RETURN NEW;
		END;
		$$ language 'plpgsql';

		DROP TRIGGER IF EXISTS update_users_updated_at ON users;
		CREATE TRIGGER update_users_updated_at BEFORE UPDATE ON users
			FOR EACH ROW EXECUTE FUNCTION update_updated_at_column();
	`

	if _, err := p.pool.Exec(ctx, createTrigger); err != nil {
		return fmt.Errorf("failed to create update trigger: %w", err)
	}

	return nil
}

const accountColumns = `id, name, email, password_hash, is_anonymous, photo_url,
	oidc_provider, oidc_subject, created_at, updated_at, last_login_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.IsAnonymous, &a.PhotoURL,
		&a.OIDCProvider, &a.OIDCSubject, &a.CreatedAt, &a.UpdatedAt, &a.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Account operations

func (p *PostgresDB) CreateAccount(ctx context.Context, a *models.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO users (id, name, email, password_hash, is_anonymous, photo_url,
			oidc_provider, oidc_subject, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := p.pool.Exec(ctx, query,
		a.ID, a.Name, a.Email, a.PasswordHash, a.IsAnonymous, a.PhotoURL,
		a.OIDCProvider, a.OIDCSubject, a.CreatedAt, a.UpdatedAt, a.LastLoginAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

// GetAccountByID returns nil without error when no row matches.
func (p *PostgresDB) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`
	return scanAccount(p.pool.QueryRow(ctx, query, id))
}

func (p *PostgresDB) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanAccount(p.pool.QueryRow(ctx, query, email))
}

func (p *PostgresDB) GetAccountByOIDC(ctx context.Context, provider, subject string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE oidc_provider = $1 AND oidc_subject = $2`
	return scanAccount(p.pool.QueryRow(ctx, query, provider, subject))
}

// LinkOIDC attaches an external identity to an existing account.
func (p *PostgresDB) LinkOIDC(ctx context.Context, id uuid.UUID, provider, subject string, photoURL *string) error {
	query := `
		UPDATE users SET oidc_provider = $2, oidc_subject = $3,
			photo_url = COALESCE($4, photo_url)
		WHERE id = $1`

	_, err := p.pool.Exec(ctx, query, id, provider, subject, photoURL)
	return err
}

func (p *PostgresDB) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `UPDATE users SET last_login_at = CURRENT_TIMESTAMP WHERE id = $1`, id)
	return err
}

// Session operations

func (p *PostgresDB) CreateSession(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, device_id, auth_method, refresh_token, is_active,
			user_agent, ip_address, expires_at, created_at, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := p.pool.Exec(ctx, query,
		s.ID, s.UserID, s.DeviceID, s.AuthMethod, s.RefreshToken, s.IsActive,
		s.UserAgent, s.IPAddress, s.ExpiresAt, s.CreatedAt, s.LastActivity,
	)
	return err
}

func (p *PostgresDB) GetSessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s := &models.Session{}
	query := `
		SELECT id, user_id, device_id, auth_method, refresh_token, is_active,
			user_agent, ip_address, expires_at, created_at, last_activity
		FROM sessions WHERE id = $1`

	err := p.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.DeviceID, &s.AuthMethod, &s.RefreshToken, &s.IsActive,
		&s.UserAgent, &s.IPAddress, &s.ExpiresAt, &s.CreatedAt, &s.LastActivity,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RotateRefreshToken stores the new refresh token of a session and bumps its
// activity time.
func (p *PostgresDB) RotateRefreshToken(ctx context.Context, id uuid.UUID, refreshToken string) error {
	query := `
		UPDATE sessions SET refresh_token = $2, last_activity = CURRENT_TIMESTAMP
		WHERE id = $1 AND is_active`

	tag, err := p.pool.Exec(ctx, query, id, refreshToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s is not active", id)
	}
	return nil
}

// RevokeSession deactivates a session and blacklists its access token in one
// transaction.
func (p *PostgresDB) RevokeSession(ctx context.Context, sessionID uuid.UUID, entry *models.TokenBlacklist) error {
	return p.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE sessions SET is_active = FALSE WHERE id = $1`, sessionID); err != nil {
			return fmt.Errorf("failed to deactivate session: %w", err)
		}
		if entry == nil {
			return nil
		}
		query := `
			INSERT INTO token_blacklist (id, token_jti, user_id, expires_at, created_at, reason)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (token_jti) DO NOTHING`
		if _, err := tx.Exec(ctx, query,
			entry.ID, entry.TokenJTI, entry.UserID, entry.ExpiresAt, entry.CreatedAt, entry.Reason,
		); err != nil {
			return fmt.Errorf("failed to blacklist token: %w", err)
		}
		return nil
	})
}

func (p *PostgresDB) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM token_blacklist WHERE token_jti = $1 AND expires_at > CURRENT_TIMESTAMP)`
	err := p.pool.QueryRow(ctx, query, jti).Scan(&exists)
	return exists, err
}

// Device credential operations

// UpsertDeviceCredential replaces whatever credential the device held.
func (p *PostgresDB) UpsertDeviceCredential(ctx context.Context, c *models.DeviceCredential) error {
	query := `
		INSERT INTO device_credentials (device_id, user_id, secret_hash, auth_method, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			secret_hash = EXCLUDED.secret_hash,
			auth_method = EXCLUDED.auth_method,
			created_at = EXCLUDED.created_at,
			last_used_at = NULL`

	_, err := p.pool.Exec(ctx, query, c.DeviceID, c.UserID, c.SecretHash, c.AuthMethod, c.CreatedAt)
	return err
}

func (p *PostgresDB) GetDeviceCredential(ctx context.Context, deviceID string) (*models.DeviceCredential, error) {
	c := &models.DeviceCredential{}
	query := `
		SELECT device_id, user_id, secret_hash, auth_method, created_at, last_used_at
		FROM device_credentials WHERE device_id = $1`

	err := p.pool.QueryRow(ctx, query, deviceID).Scan(
		&c.DeviceID, &c.UserID, &c.SecretHash, &c.AuthMethod, &c.CreatedAt, &c.LastUsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (p *PostgresDB) MarkDeviceCredentialUsed(ctx context.Context, deviceID string) error {
	_, err := p.pool.Exec(ctx, `UPDATE device_credentials SET last_used_at = CURRENT_TIMESTAMP WHERE device_id = $1`, deviceID)
	return err
}

func (p *PostgresDB) DeleteDeviceCredential(ctx context.Context, deviceID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM device_credentials WHERE device_id = $1`, deviceID)
	return err
}

// CleanupExpiredAuthData removes expired or revoked sessions and blacklist
// entries past their expiry. It returns the number of rows removed.
func (p *PostgresDB) CleanupExpiredAuthData(ctx context.Context) (int64, error) {
	var removed int64
	err := p.WithTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE expires_at < CURRENT_TIMESTAMP OR NOT is_active`)
		if err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
		removed += tag.RowsAffected()

		tag, err = tx.Exec(ctx, `DELETE FROM token_blacklist WHERE expires_at < CURRENT_TIMESTAMP`)
		if err != nil {
			return fmt.Errorf("failed to delete blacklist entries: %w", err)
		}
		removed += tag.RowsAffected()
		return nil
	})
	return removed, err
}

// Transaction support
func (p *PostgresDB) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Health check
func (p *PostgresDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close connection
func (p *PostgresDB) Close() {
	p.pool.Close()
}
