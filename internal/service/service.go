package service

import (
	"context"
	"errors"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/cache"
	"github.com/ChrisAbdo/event-manager/internal/logger"
	"github.com/ChrisAbdo/event-manager/internal/models"
	"github.com/ChrisAbdo/event-manager/internal/repository"

	"github.com/google/uuid"
)

// Authorization covers sign-up, sign-in and token handling.
type Authorization interface {
	Register(ctx context.Context, in models.UserCreate) (*models.User, error)
	Login(ctx context.Context, in models.LoginRequest) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ParseToken(accessToken string) (*Claims, error)
	Principal(ctx context.Context, id uuid.UUID) (cache.Principal, error)
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

// Users exposes profile reads and the administrative user operations.
// actor is the id of the authenticated caller.
type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, p ListParams) (*models.UserPage, error)
	UpdateProfile(ctx context.Context, actor, id uuid.UUID, in models.UserUpdate, allowRole bool) (*models.User, error)
	SetProfessional(ctx context.Context, actor, id uuid.UUID, professional bool) (*models.User, error)
	Unlock(ctx context.Context, actor, id uuid.UUID) (*models.User, error)
	Delete(ctx context.Context, actor, id uuid.UUID) error
}

// AuditLog exposes the append-only security log with filtering access.
type AuditLog interface {
	Events(ctx context.Context, f models.AuditFilter) ([]models.AuditEvent, error)
}

// Maintenance runs periodic housekeeping.
// Stop the scheduler via context cancellation in main() for graceful shutdown.
type Maintenance interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
	Run(ctx context.Context, schedule string) error
}

// Service aggregates all sub-services.
type Service struct {
	Authorization
	Users
	AuditLog
	Maintenance

	repos *repository.Repository
}

// NewService wires the repository layer into concrete services.
func NewService(repos *repository.Repository, opts Options) *Service {
	opts = opts.withDefaults()

	audit := NewAuditService(repos.Audit, opts.Metrics, opts.Log)
	principals := cache.NewPrincipals(opts.CacheSize, opts.CacheTTL, principalLoader(repos.Users))

	return &Service{
		Authorization: NewAuthService(repos.Users, repos.Tokens, audit, principals, opts),
		Users:         NewUserService(repos.Users, audit, principals),
		AuditLog:      audit,
		Maintenance:   NewMaintenanceService(repos.Tokens, opts.RevokedRetention, opts.Log),
		repos:         repos,
	}
}

// Ready reports whether the storage behind the service answers.
func (s *Service) Ready(ctx context.Context) error {
	if s.repos == nil {
		return errNoStorage
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.repos.Ping(ctx)
}

var errNoStorage = errors.New("storage not configured")

func principalLoader(users repository.UserRepo) cache.Loader {
	return func(ctx context.Context, id uuid.UUID) (cache.Principal, error) {
		u, err := getUser(ctx, users, id)
		if err != nil {
			return cache.Principal{}, err
		}
		return cache.Principal{Role: u.Role, IsLocked: u.IsLocked}, nil
	}
}

// logOrNop keeps services usable without a configured logger.
func logOrNop(l *logger.Logger) *logger.Logger {
	if l == nil {
		return logger.NewNop()
	}
	return l
}

