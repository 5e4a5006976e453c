package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

// SessionRepository persists the current client session in Postgres, one row per profile.
type SessionRepository interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, s domain.Session) error
	Delete(ctx context.Context) error
}

type sessionRepository struct {
	pool    *pgxpool.Pool
	profile string
	expiry  func(credential string) (time.Time, bool)
}

// NewSessionRepository returns a Postgres-backed implementation scoped to profile.
// expiry, when non-nil, extracts the credential's expiry for the expires_at column.
func NewSessionRepository(pool *pgxpool.Pool, profile string, expiry func(string) (time.Time, bool)) SessionRepository {
	return &sessionRepository{pool: pool, profile: profile, expiry: expiry}
}

func (r *sessionRepository) Load(ctx context.Context) (*domain.Session, error) {
	const query = `
        SELECT subject_id, role, credential, display_name, email
        FROM client_sessions WHERE profile=$1`

	var s domain.Session
	if err := r.pool.QueryRow(ctx, query, r.profile).Scan(
		&s.SubjectID,
		&s.Role,
		&s.Credential,
		&s.DisplayName,
		&s.Email,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) Save(ctx context.Context, s domain.Session) error {
	const query = `
        INSERT INTO client_sessions (profile, subject_id, role, credential, display_name, email, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (profile) DO UPDATE SET
            subject_id=EXCLUDED.subject_id,
            role=EXCLUDED.role,
            credential=EXCLUDED.credential,
            display_name=EXCLUDED.display_name,
            email=EXCLUDED.email,
            expires_at=EXCLUDED.expires_at,
            updated_at=NOW()`

	var expiresAt *time.Time
	if r.expiry != nil {
		if exp, ok := r.expiry(s.Credential); ok {
			expiresAt = &exp
		}
	}

	_, err := r.pool.Exec(ctx, query,
		r.profile,
		s.SubjectID,
		s.Role,
		s.Credential,
		s.DisplayName,
		s.Email,
		expiresAt,
	)
	return err
}

func (r *sessionRepository) Delete(ctx context.Context) error {
	const query = `DELETE FROM client_sessions WHERE profile=$1`
	_, err := r.pool.Exec(ctx, query, r.profile)
	return err
}
