package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/models"
	"github.com/ChrisAbdo/event-manager/internal/repository"

	"github.com/google/uuid"
)

// memUserRepo is an in-memory repository.UserRepo. The Fn hooks, when set,
// replace the matching method so tests can inject failures.
type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User

	CreateFn func(u *models.User) error
	UpdateFn func(u *models.User) error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[uuid.UUID]models.User{}}
}

var _ repository.UserRepo = (*memUserRepo)(nil)

func (m *memUserRepo) put(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	return u
}

func (m *memUserRepo) Create(_ context.Context, u *models.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Email == u.Email {
			return &repository.DuplicateError{Column: "email"}
		}
		if other.Nickname == u.Nickname {
			return &repository.DuplicateError{Column: "nickname"}
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = *u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) ExistsByEmail(_ context.Context, email string, exclude uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == email && id != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUserRepo) ExistsByNickname(_ context.Context, nickname string, exclude uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Nickname == nickname && id != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUserRepo) Update(_ context.Context, u *models.User) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	// only the columns Update writes
	cur.Email, cur.Nickname = u.Email, u.Nickname
	cur.FirstName, cur.LastName, cur.Bio = u.FirstName, u.LastName, u.Bio
	cur.ProfilePictureURL, cur.LinkedInProfileURL, cur.GitHubProfileURL = u.ProfilePictureURL, u.LinkedInProfileURL, u.GitHubProfileURL
	cur.Role, cur.IsProfessional = u.Role, u.IsProfessional
	cur.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = cur
	return nil
}

func (m *memUserRepo) List(_ context.Context, offset, limit int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if offset >= len(all) {
		return []models.User{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memUserRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memUserRepo) RecordLoginFailure(_ context.Context, id uuid.UUID, maxAttempts int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, false, repository.ErrNotFound
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		u.IsLocked = true
	}
	m.users[id] = u
	return u.FailedLoginAttempts, u.IsLocked, nil
}

func (m *memUserRepo) RecordLoginSuccess(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.FailedLoginAttempts = 0
	u.LastLoginAt = &at
	m.users[id] = u
	return nil
}

func (m *memUserRepo) SetLocked(_ context.Context, id uuid.UUID, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsLocked = locked
	u.FailedLoginAttempts = 0
	m.users[id] = u
	return nil
}

func (m *memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// memTokenRepo is an in-memory repository.TokenRepo.
type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]models.RefreshToken

	deleteExpiredArgs [][2]time.Time
	DeleteExpiredFn   func(now, revokedBefore time.Time) (int64, error)
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: map[uuid.UUID]models.RefreshToken{}}
}

var _ repository.TokenRepo = (*memTokenRepo)(nil)

func (m *memTokenRepo) Create(_ context.Context, t models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.ID] = t
	return nil
}

func (m *memTokenRepo) Get(_ context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m *memTokenRepo) Revoke(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	t.RevokedAt = &at
	m.tokens[id] = t
	return true, nil
}

func (m *memTokenRepo) DeleteExpired(_ context.Context, now, revokedBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteExpiredArgs = append(m.deleteExpiredArgs, [2]time.Time{now, revokedBefore})
	if m.DeleteExpiredFn != nil {
		return m.DeleteExpiredFn(now, revokedBefore)
	}
	var n int64
	for id, t := range m.tokens {
		if t.ExpiresAt.Before(now) || (t.RevokedAt != nil && t.RevokedAt.Before(revokedBefore)) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

func (m *memTokenRepo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// memAuditRepo is an in-memory repository.AuditRepo.
type memAuditRepo struct {
	mu       sync.Mutex
	events   []models.AuditEvent
	AppendFn func(e models.AuditEvent) error
	lastList models.AuditFilter
}

var _ repository.AuditRepo = (*memAuditRepo)(nil)

func (m *memAuditRepo) Append(_ context.Context, e models.AuditEvent) error {
	if m.AppendFn != nil {
		return m.AppendFn(e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memAuditRepo) List(_ context.Context, f models.AuditFilter) ([]models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = f
	out := make([]models.AuditEvent, 0, len(m.events))
	for _, e := range m.events {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memAuditRepo) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}
