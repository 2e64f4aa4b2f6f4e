package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/models"

	"github.com/google/uuid"
)

type TokenRepository struct {
	db *sql.DB
	binder
}

func NewTokenRepository(db *sql.DB, driver string) *TokenRepository {
	return &TokenRepository{db: db, binder: binder{driver: driver}}
}

var _ TokenRepo = (*TokenRepository)(nil)

const (
	insertTokenSQL = `
		INSERT INTO refresh_tokens (id, user_id, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	selectTokenSQL = `
		SELECT id, user_id, expires_at, revoked_at, created_at
		FROM refresh_tokens WHERE id = ?
	`

	// Only the first revocation wins; a second one reports no rows.
	revokeTokenSQL = `UPDATE refresh_tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`

	deleteExpiredTokensSQL = `
		DELETE FROM refresh_tokens
		WHERE expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)
	`
)

// Create stores a newly issued refresh token.
func (r *TokenRepository) Create(ctx context.Context, t models.RefreshToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, r.q(insertTokenSQL),
		t.ID,
		t.UserID,
		t.ExpiresAt.UTC(),
		t.RevokedAt,
		t.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// Get loads a token by jti. Returns ErrNotFound if it was never issued or already purged.
func (r *TokenRepository) Get(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := r.db.QueryRowContext(ctx, r.q(selectTokenSQL), id).Scan(
		&t.ID,
		&t.UserID,
		&t.ExpiresAt,
		&t.RevokedAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select refresh token: %w", err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	utcPtr(t.RevokedAt)
	return &t, nil
}

// Revoke marks the token revoked at at. It reports false when the token was
// unknown or already revoked.
func (r *TokenRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.q(revokeTokenSQL), at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteExpired removes tokens expired before now and tokens revoked before
// revokedBefore. It returns how many rows went away.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now, revokedBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.q(deleteExpiredTokensSQL), now.UTC(), revokedBefore.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
