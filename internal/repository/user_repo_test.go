// user_repo_test.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/models"
	sqldb "github.com/ChrisAbdo/event-manager/internal/repository/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func newMockRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	repo := NewUserRepository(db, sqldb.DriverSQLite)
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	}
	return repo, mock, cleanup
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "nickname", "first_name", "last_name", "bio", "profile_picture_url",
		"linkedin_profile_url", "github_profile_url", "role", "is_professional", "password_hash",
		"failed_login_attempts", "is_locked", "last_login_at", "created_at", "updated_at",
	})
}

func strPtr(s string) *string { return &s }

func TestUserRepository_Create(t *testing.T) {
	id := uuid.MustParse("7f1c2d3e-0000-4000-8000-000000000001")

	tests := []struct {
		name           string
		mockExpect     func(sqlmock.Sqlmock)
		wantErr        bool
		wantDupColumn  string
		errContainsStr string
	}{
		{
			name: "success",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WithArgs(id, "alice@example.com", "alice", "Alice", nil, nil, nil, nil, nil,
						"AUTHENTICATED", false, "h123", 0, false, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "duplicate email (sqlite)",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"))
			},
			wantErr:       true,
			wantDupColumn: "email",
		},
		{
			name: "duplicate nickname (postgres)",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "users_nickname_key"})
			},
			wantErr:       true,
			wantDupColumn: "nickname",
		},
		{
			name: "exec error",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WillReturnError(errors.New("db exec failed"))
			},
			wantErr:        true,
			errContainsStr: "insert user",
		},
	}

	for _, tt := range tests {
		tt := tt // capture
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := newMockRepo(t)
			defer cleanup()

			tt.mockExpect(mock)

			u := &models.User{
				ID:           id,
				Email:        "alice@example.com",
				Nickname:     "alice",
				FirstName:    strPtr("Alice"),
				Role:         models.RoleAuthenticated,
				PasswordHash: "h123",
			}
			err := repo.Create(context.Background(), u)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if tt.errContainsStr != "" && !contains(err.Error(), tt.errContainsStr) {
					t.Fatalf("expected error to contain %q, got %q", tt.errContainsStr, err.Error())
				}
				if tt.wantDupColumn != "" {
					var dup *DuplicateError
					if !errors.As(err, &dup) || !errors.Is(err, ErrDuplicate) {
						t.Fatalf("expected duplicate error, got %v", err)
					}
					if dup.Column != tt.wantDupColumn {
						t.Fatalf("duplicate column: want %q, got %q", tt.wantDupColumn, dup.Column)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u.CreatedAt.IsZero() || !u.UpdatedAt.Equal(u.CreatedAt) {
				t.Fatalf("expected timestamps to be filled, got created=%v updated=%v", u.CreatedAt, u.UpdatedAt)
			}
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	id := uuid.New()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		email          string
		mockExpect     func(sqlmock.Sqlmock)
		wantUser       *models.User
		wantNotFound   bool
		errContainsStr string
	}{
		{
			name:  "found",
			email: "alice@example.com",
			mockExpect: func(m sqlmock.Sqlmock) {
				rows := userRows().AddRow(id.String(), "alice@example.com", "alice", "Alice", nil, "hi", nil,
					nil, "https://github.com/alice", "MANAGER", true, "h123", 2, false, nil, created, created)
				m.ExpectQuery(regexp.QuoteMeta(selectUserByEmailSQL)).
					WithArgs("alice@example.com").
					WillReturnRows(rows)
			},
			wantUser: &models.User{
				ID:                  id,
				Email:               "alice@example.com",
				Nickname:            "alice",
				FirstName:           strPtr("Alice"),
				Bio:                 strPtr("hi"),
				GitHubProfileURL:    strPtr("https://github.com/alice"),
				Role:                models.RoleManager,
				IsProfessional:      true,
				PasswordHash:        "h123",
				FailedLoginAttempts: 2,
			},
		},
		{
			name:  "not found (ErrNoRows)",
			email: "missing@example.com",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectUserByEmailSQL)).
					WithArgs("missing@example.com").
					WillReturnError(sql.ErrNoRows)
			},
			wantNotFound: true,
		},
		{
			name:  "query error",
			email: "bob@example.com",
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(selectUserByEmailSQL)).
					WithArgs("bob@example.com").
					WillReturnError(errors.New("db query failed"))
			},
			errContainsStr: "select user",
		},
	}

	for _, tt := range tests {
		tt := tt // capture
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := newMockRepo(t)
			defer cleanup()

			tt.mockExpect(mock)

			u, err := repo.GetByEmail(context.Background(), tt.email)

			switch {
			case tt.wantNotFound:
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
				return
			case tt.errContainsStr != "":
				if err == nil || !contains(err.Error(), tt.errContainsStr) {
					t.Fatalf("expected error to contain %q, got %v", tt.errContainsStr, err)
				}
				if u != nil {
					t.Fatalf("expected user=nil on error, got %+v", u)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			w := tt.wantUser
			if u.ID != w.ID || u.Email != w.Email || u.Nickname != w.Nickname || u.Role != w.Role ||
				u.IsProfessional != w.IsProfessional || u.PasswordHash != w.PasswordHash ||
				u.FailedLoginAttempts != w.FailedLoginAttempts {
				t.Fatalf("unexpected user: want %+v, got %+v", w, u)
			}
			if u.FirstName == nil || *u.FirstName != "Alice" || u.LastName != nil {
				t.Fatalf("unexpected names: first=%v last=%v", u.FirstName, u.LastName)
			}
			if u.Bio == nil || *u.Bio != "hi" || u.GitHubProfileURL == nil {
				t.Fatalf("unexpected profile fields: %+v", u)
			}
			if u.LastLoginAt != nil {
				t.Fatalf("expected nil last_login_at, got %v", u.LastLoginAt)
			}
			if !u.CreatedAt.Equal(created) {
				t.Fatalf("created_at: want %v, got %v", created, u.CreatedAt)
			}
		})
	}
}

func TestUserRepository_ExistsByNickname_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewUserRepository(db, sqldb.DriverPostgres)
	exclude := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM users WHERE nickname = $1 AND id <> $2)`)).
		WithArgs("alice", exclude).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsByNickname(context.Background(), "alice", exclude)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected nickname to exist")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestUserRepository_Update(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t)
		defer cleanup()

		mock.ExpectExec(regexp.QuoteMeta(updateUserSQL)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), &models.User{ID: uuid.New(), Role: models.RoleAdmin})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t)
		defer cleanup()

		mock.ExpectExec(regexp.QuoteMeta(updateUserSQL)).
			WillReturnError(&pq.Error{Code: "23505", Detail: "Key (email)=(a@b.co) already exists."})

		err := repo.Update(context.Background(), &models.User{ID: uuid.New()})
		var dup *DuplicateError
		if !errors.As(err, &dup) || dup.Column != "email" {
			t.Fatalf("expected duplicate email, got %v", err)
		}
	})

	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := newMockRepo(t)
		defer cleanup()

		id := uuid.New()
		mock.ExpectExec(regexp.QuoteMeta(updateUserSQL)).
			WithArgs("a@b.co", "nick", nil, nil, nil, nil, nil, nil, "MANAGER", true, sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		u := &models.User{ID: id, Email: "a@b.co", Nickname: "nick", Role: models.RoleManager, IsProfessional: true}
		if err := repo.Update(context.Background(), u); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.UpdatedAt.IsZero() {
			t.Fatalf("expected updated_at to be set")
		}
	})
}

func TestUserRepository_RecordLoginFailure(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(loginFailSQL)).
		WithArgs(5, sqlmock.AnyArg(), id).
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts", "is_locked"}).AddRow(5, true))

	attempts, locked, err := repo.RecordLoginFailure(context.Background(), id, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 5 || !locked {
		t.Fatalf("want attempts=5 locked=true, got %d %t", attempts, locked)
	}
}

func TestUserRepository_ListAndCount(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(listUsersSQL)).
		WithArgs(10, 20).
		WillReturnRows(userRows().
			AddRow(uuid.NewString(), "a@example.com", "a_1", nil, nil, nil, nil, nil, nil, "AUTHENTICATED", false, "h", 0, false, now, now, now).
			AddRow(uuid.NewString(), "b@example.com", "b_2", nil, nil, nil, nil, nil, nil, "ADMIN", false, "h", 0, true, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(countUsersSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(22))

	users, err := repo.List(context.Background(), 20, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 || users[1].Role != models.RoleAdmin || !users[1].IsLocked || users[0].LastLoginAt == nil {
		t.Fatalf("unexpected users: %+v", users)
	}

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 22 {
		t.Fatalf("want 22, got %d", n)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(deleteUserSQL)).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(deleteUserSQL)).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), id); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := repo.Delete(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func contains(s, substr string) bool {
	return len(substr) == 0 || (len(s) >= len(substr) && regexp.MustCompile(regexp.QuoteMeta(substr)).FindStringIndex(s) != nil)
}
