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

type UserRepository struct {
	db *sql.DB
	binder
}

func NewUserRepository(db *sql.DB, driver string) *UserRepository {
	return &UserRepository{db: db, binder: binder{driver: driver}}
}

// Ensure implementation of UserRepo interface at compile time.
var _ UserRepo = (*UserRepository)(nil)

const userColumns = `id, email, nickname, first_name, last_name, bio, profile_picture_url,
	linkedin_profile_url, github_profile_url, role, is_professional, password_hash,
	failed_login_attempts, is_locked, last_login_at, created_at, updated_at`

const (
	insertUserSQL = `INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	selectUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	existsEmailSQL       = `SELECT EXISTS (SELECT 1 FROM users WHERE email = ? AND id <> ?)`
	existsNicknameSQL    = `SELECT EXISTS (SELECT 1 FROM users WHERE nickname = ? AND id <> ?)`
	updateUserSQL        = `
		UPDATE users SET
			email = ?, nickname = ?, first_name = ?, last_name = ?, bio = ?,
			profile_picture_url = ?, linkedin_profile_url = ?, github_profile_url = ?,
			role = ?, is_professional = ?, updated_at = ?
		WHERE id = ?`
	listUsersSQL  = `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`
	countUsersSQL = `SELECT COUNT(*) FROM users`
	loginFailSQL  = `
		UPDATE users SET
			failed_login_attempts = failed_login_attempts + 1,
			is_locked = CASE WHEN failed_login_attempts + 1 >= ? THEN TRUE ELSE is_locked END,
			updated_at = ?
		WHERE id = ?
		RETURNING failed_login_attempts, is_locked`
	loginSuccessSQL = `UPDATE users SET failed_login_attempts = 0, last_login_at = ?, updated_at = ? WHERE id = ?`
	setLockedSQL    = `UPDATE users SET is_locked = ?, failed_login_attempts = 0, updated_at = ? WHERE id = ?`
	deleteUserSQL   = `DELETE FROM users WHERE id = ?`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Nickname,
		&u.FirstName,
		&u.LastName,
		&u.Bio,
		&u.ProfilePictureURL,
		&u.LinkedInProfileURL,
		&u.GitHubProfileURL,
		&u.Role,
		&u.IsProfessional,
		&u.PasswordHash,
		&u.FailedLoginAttempts,
		&u.IsLocked,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	utcPtr(u.LastLoginAt)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// Create inserts u. Missing ID and timestamps are filled in place.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, r.q(insertUserSQL),
		u.ID,
		u.Email,
		u.Nickname,
		u.FirstName,
		u.LastName,
		u.Bio,
		u.ProfilePictureURL,
		u.LinkedInProfileURL,
		u.GitHubProfileURL,
		string(u.Role),
		u.IsProfessional,
		u.PasswordHash,
		u.FailedLoginAttempts,
		u.IsLocked,
		u.LastLoginAt,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user %q: %w", u.Email, mapDuplicate(err))
	}
	return nil
}

// GetByID fetches a user by id. Returns ErrNotFound if there is none.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, r.q(selectUserByIDSQL), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail expects an already normalized address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, r.q(selectUserByEmailSQL), email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user %q: %w", email, err)
	}
	return u, nil
}

// ExistsByEmail reports whether another user (not exclude) holds email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, r.q(existsEmailSQL), email, exclude).Scan(&ok); err != nil {
		return false, fmt.Errorf("check email %q: %w", email, err)
	}
	return ok, nil
}

// ExistsByNickname reports whether another user (not exclude) holds nickname.
func (r *UserRepository) ExistsByNickname(ctx context.Context, nickname string, exclude uuid.UUID) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, r.q(existsNicknameSQL), nickname, exclude).Scan(&ok); err != nil {
		return false, fmt.Errorf("check nickname %q: %w", nickname, err)
	}
	return ok, nil
}

// Update writes the profile, role and professional flag of u.
// Credentials and lockout state have their own methods.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, r.q(updateUserSQL),
		u.Email,
		u.Nickname,
		u.FirstName,
		u.LastName,
		u.Bio,
		u.ProfilePictureURL,
		u.LinkedInProfileURL,
		u.GitHubProfileURL,
		string(u.Role),
		u.IsProfessional,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user %s: %w", u.ID, mapDuplicate(err))
	}
	return expectOneRow(res)
}

// List returns users ordered by creation time.
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, r.q(listUsersSQL), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, r.q(countUsersSQL)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// RecordLoginFailure bumps the failure counter and locks the account once it
// reaches maxAttempts. It returns the new counter and lock state.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, maxAttempts int) (int, bool, error) {
	var (
		attempts int
		locked   bool
	)
	err := r.db.QueryRowContext(ctx, r.q(loginFailSQL), maxAttempts, time.Now().UTC(), id).Scan(&attempts, &locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, ErrNotFound
		}
		return 0, false, fmt.Errorf("record login failure for %s: %w", id, err)
	}
	return attempts, locked, nil
}

func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	at = at.UTC()
	res, err := r.db.ExecContext(ctx, r.q(loginSuccessSQL), at, at, id)
	if err != nil {
		return fmt.Errorf("record login success for %s: %w", id, err)
	}
	return expectOneRow(res)
}

// SetLocked changes the lock flag and clears the failure counter.
func (r *UserRepository) SetLocked(ctx context.Context, id uuid.UUID, locked bool) error {
	res, err := r.db.ExecContext(ctx, r.q(setLockedSQL), locked, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set locked=%t for %s: %w", locked, id, err)
	}
	return expectOneRow(res)
}

// Delete removes the user; refresh tokens go with it.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.q(deleteUserSQL), id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
