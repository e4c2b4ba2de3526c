package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"lumen/app/core/db"
)

// SessionStore persists interactive sessions so they survive restarts.
// Tokens are opaque uuids; the allowlist decision was already made at
// sign-in time, so a resolved session is trusted as-is.
type SessionStore struct {
	db  *db.DB
	ttl time.Duration
}

func NewSessionStore(database *db.DB, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionStore{db: database, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, email string) (string, error) {
	token := uuid.NewString()
	now := time.Now().UTC()
	query := `INSERT INTO sessions (token, email, created_at, expires_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.Conn().ExecContext(ctx, query, token, email, now.UnixNano(), now.Add(s.ttl).UnixNano()); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the email bound to the token, or empty when the token
// is unknown or expired.
func (s *SessionStore) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	var (
		email     string
		expiresAt int64
	)
	err := s.db.Conn().QueryRowContext(ctx, `SELECT email, expires_at FROM sessions WHERE token = ?`, token).Scan(&email, &expiresAt)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if time.Now().UTC().UnixNano() >= expiresAt {
		return "", nil
	}
	return email, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.Conn().ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// PruneExpired removes sessions past their expiry and reports how many
// were dropped.
func (s *SessionStore) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TTL exposes the configured session lifetime for cookie expiry.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}
