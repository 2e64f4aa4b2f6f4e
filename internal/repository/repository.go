package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/models"
	sqldb "github.com/ChrisAbdo/event-manager/internal/repository/db"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is matched by every *DuplicateError.
	ErrDuplicate = errors.New("duplicate value")
)

// DuplicateError reports a unique constraint violation on Column.
type DuplicateError struct {
	Column string
	Err    error
}

func (e *DuplicateError) Error() string {
	if e.Column == "" {
		return "duplicate value"
	}
	return fmt.Sprintf("duplicate value for %s", e.Column)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

func (e *DuplicateError) Unwrap() error { return e.Err }

type UserRepo interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	ExistsByNickname(ctx context.Context, nickname string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, u *models.User) error
	List(ctx context.Context, offset, limit int) ([]models.User, error)
	Count(ctx context.Context) (int, error)
	RecordLoginFailure(ctx context.Context, id uuid.UUID, maxAttempts int) (attempts int, locked bool, err error)
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error
	SetLocked(ctx context.Context, id uuid.UUID, locked bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type TokenRepo interface {
	Create(ctx context.Context, t models.RefreshToken) error
	Get(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now, revokedBefore time.Time) (int64, error)
}

type AuditRepo interface {
	Append(ctx context.Context, e models.AuditEvent) error
	List(ctx context.Context, f models.AuditFilter) ([]models.AuditEvent, error)
}

type Repository struct {
	Users  UserRepo
	Tokens TokenRepo
	Audit  AuditRepo
	db     *sql.DB
}

func NewRepository(db *sql.DB, driver string) *Repository {
	return &Repository{
		Users:  NewUserRepository(db, driver),
		Tokens: NewTokenRepository(db, driver),
		Audit:  NewAuditRepository(db, driver),
		db:     db,
	}
}

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database not configured")
	}
	return r.db.PingContext(ctx)
}

// binder rewrites queries for the configured driver.
type binder struct {
	driver string
}

func (b binder) q(query string) string { return sqldb.Rebind(b.driver, query) }

// mapDuplicate turns driver-specific unique violations into *DuplicateError.
func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &DuplicateError{Column: columnFromText(pqErr.Constraint + " " + pqErr.Detail), Err: err}
	}

	// modernc reports: UNIQUE constraint failed: users.email (2067)
	const marker = "UNIQUE constraint failed: "
	msg := err.Error()
	if i := strings.Index(msg, marker); i >= 0 {
		col := msg[i+len(marker):]
		if j := strings.IndexAny(col, " ,"); j >= 0 {
			col = col[:j]
		}
		if k := strings.LastIndexByte(col, '.'); k >= 0 {
			col = col[k+1:]
		}
		return &DuplicateError{Column: col, Err: err}
	}
	return err
}

func columnFromText(s string) string {
	for _, col := range []string{"email", "nickname"} {
		if strings.Contains(s, col) {
			return col
		}
	}
	return ""
}

func utcPtr(t *time.Time) {
	if t != nil {
		*t = t.UTC()
	}
}
