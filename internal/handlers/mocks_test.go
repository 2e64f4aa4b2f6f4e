package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/ChrisAbdo/event-manager/internal/cache"
	"github.com/ChrisAbdo/event-manager/internal/models"
	"github.com/ChrisAbdo/event-manager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ---- Service Mocks ----

type mockAuth struct {
	registerUser *models.User
	registerErr  error
	pair         *models.TokenPair
	loginErr     error
	refreshErr   error
	logoutErr    error

	// ParseToken returns claims from tokens, keyed by raw token
	tokens       map[string]service.Claims
	principals   map[uuid.UUID]cache.Principal
	principalErr error

	lastRegister   models.UserCreate
	lastLogin      models.LoginRequest
	lastRefresh    string
	lastLogout     string
	lastParseToken string
}

func (m *mockAuth) Register(ctx context.Context, in models.UserCreate) (*models.User, error) {
	m.lastRegister = in
	return m.registerUser, m.registerErr
}
func (m *mockAuth) Login(ctx context.Context, in models.LoginRequest) (*models.TokenPair, error) {
	m.lastLogin = in
	return m.pair, m.loginErr
}
func (m *mockAuth) Refresh(ctx context.Context, token string) (*models.TokenPair, error) {
	m.lastRefresh = token
	return m.pair, m.refreshErr
}
func (m *mockAuth) Logout(ctx context.Context, token string) error {
	m.lastLogout = token
	return m.logoutErr
}
func (m *mockAuth) ParseToken(token string) (*service.Claims, error) {
	m.lastParseToken = token
	c, ok := m.tokens[token]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return &c, nil
}
func (m *mockAuth) Principal(ctx context.Context, id uuid.UUID) (cache.Principal, error) {
	if m.principalErr != nil {
		return cache.Principal{}, m.principalErr
	}
	p, ok := m.principals[id]
	if !ok {
		return cache.Principal{}, service.ErrUserNotFound
	}
	return p, nil
}
func (m *mockAuth) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	return false, nil
}

// withUser registers a valid token for a user holding role.
func (m *mockAuth) withUser(token string, role models.Role) uuid.UUID {
	id := uuid.New()
	if m.tokens == nil {
		m.tokens = map[string]service.Claims{}
	}
	if m.principals == nil {
		m.principals = map[uuid.UUID]cache.Principal{}
	}
	m.tokens[token] = service.Claims{UserID: id, Role: role}
	m.principals[id] = cache.Principal{Role: role}
	return id
}

type mockUsers struct {
	user *models.User
	page *models.UserPage
	err  error

	lastActor     uuid.UUID
	lastID        uuid.UUID
	lastUpdate    models.UserUpdate
	lastAllowRole bool
	lastList      service.ListParams
	lastPro       bool
	deleted       int
}

func (m *mockUsers) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.lastID = id
	return m.user, m.err
}
func (m *mockUsers) List(ctx context.Context, p service.ListParams) (*models.UserPage, error) {
	m.lastList = p
	return m.page, m.err
}
func (m *mockUsers) UpdateProfile(ctx context.Context, actor, id uuid.UUID, in models.UserUpdate, allowRole bool) (*models.User, error) {
	m.lastActor, m.lastID, m.lastUpdate, m.lastAllowRole = actor, id, in, allowRole
	return m.user, m.err
}
func (m *mockUsers) SetProfessional(ctx context.Context, actor, id uuid.UUID, professional bool) (*models.User, error) {
	m.lastActor, m.lastID, m.lastPro = actor, id, professional
	return m.user, m.err
}
func (m *mockUsers) Unlock(ctx context.Context, actor, id uuid.UUID) (*models.User, error) {
	m.lastActor, m.lastID = actor, id
	return m.user, m.err
}
func (m *mockUsers) Delete(ctx context.Context, actor, id uuid.UUID) error {
	m.lastActor, m.lastID = actor, id
	if m.err == nil {
		m.deleted++
	}
	return m.err
}

type mockAuditLog struct {
	mu      sync.Mutex
	resp    []models.AuditEvent
	err     error
	filters []models.AuditFilter
}

func (m *mockAuditLog) Events(ctx context.Context, f models.AuditFilter) ([]models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, f)
	return m.resp, m.err
}

func (m *mockAuditLog) last() models.AuditFilter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filters[len(m.filters)-1]
}

func (m *mockAuditLog) set(events []models.AuditEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resp = events
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	h := NewHandler(s, nil, opts...)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
