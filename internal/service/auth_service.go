package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/cache"
	"github.com/ChrisAbdo/event-manager/internal/logger"
	"github.com/ChrisAbdo/event-manager/internal/models"
	"github.com/ChrisAbdo/event-manager/internal/nickname"
	"github.com/ChrisAbdo/event-manager/internal/repository"
	"github.com/ChrisAbdo/event-manager/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// How many generated nicknames Register tries before giving up.
const maxNicknameAttempts = 5

// AuthService handles user auth logic
type AuthService struct {
	users      repository.UserRepo
	tokens     repository.TokenRepo
	audit      recorder
	principals *cache.Principals
	issuer     *tokenIssuer

	maxAttempts int
	bcryptCost  int
	log         *logger.Logger
}

func NewAuthService(users repository.UserRepo, tokens repository.TokenRepo, audit recorder, principals *cache.Principals, opts Options) *AuthService {
	opts = opts.withDefaults()
	return &AuthService{
		users:      users,
		tokens:     tokens,
		audit:      audit,
		principals: principals,
		issuer: &tokenIssuer{
			secret:     opts.JWTSecret,
			issuer:     opts.JWTIssuer,
			accessTTL:  opts.AccessTTL,
			refreshTTL: opts.RefreshTTL,
			now:        time.Now,
		},
		maxAttempts: opts.MaxLoginAttempts,
		bcryptCost:  opts.BcryptCost,
		log:         opts.Log,
	}
}

// Register validates the payload, hashes the password and creates an
// AUTHENTICATED user. A nickname is generated when none is given.
func (s *AuthService) Register(ctx context.Context, in models.UserCreate) (*models.User, error) {
	if err := validation.UserCreate(&in); err != nil {
		return nil, err
	}

	nick, err := s.pickNickname(ctx, in.Email, in.Nickname)
	if err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Email:              in.Email,
		Nickname:           nick,
		FirstName:          in.FirstName,
		LastName:           in.LastName,
		Bio:                in.Bio,
		ProfilePictureURL:  in.ProfilePictureURL,
		LinkedInProfileURL: in.LinkedInProfileURL,
		GitHubProfileURL:   in.GitHubProfileURL,
		Role:               models.RoleAuthenticated,
		PasswordHash:       hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, takenError(err)
	}

	s.log.Infow("auth_user_registered", "user_id", u.ID, "nickname", u.Nickname)
	s.audit.Record(ctx, event(models.EventUserRegistered, idPtr(u.ID), idPtr(u.ID), "user registered", nil))
	return u, nil
}

// pickNickname checks email and nickname availability concurrently. A taken
// generated nickname is replaced; a taken chosen one is an error.
func (s *AuthService) pickNickname(ctx context.Context, email string, chosen *string) (string, error) {
	generated := chosen == nil
	nick := ""
	if generated {
		nick = nickname.Generate()
	} else {
		nick = *chosen
	}

	for attempt := 1; ; attempt++ {
		emailTaken, nickTaken, err := s.availability(ctx, email, nick)
		if err != nil {
			return "", err
		}
		if emailTaken {
			return "", ErrEmailTaken
		}
		if !nickTaken {
			return nick, nil
		}
		if !generated || attempt >= maxNicknameAttempts {
			return "", ErrNicknameTaken
		}
		nick = nickname.Generate()
	}
}

func (s *AuthService) availability(ctx context.Context, email, nick string) (emailTaken, nickTaken bool, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		emailTaken, err = s.users.ExistsByEmail(gctx, email, uuid.Nil)
		return err
	})
	g.Go(func() error {
		var err error
		nickTaken, err = s.users.ExistsByNickname(gctx, nick, uuid.Nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, false, fmt.Errorf("check availability: %w", err)
	}
	return emailTaken, nickTaken, nil
}

// Login checks credentials and returns a fresh token pair. Consecutive
// failures lock the account once they reach the configured maximum.
func (s *AuthService) Login(ctx context.Context, in models.LoginRequest) (*models.TokenPair, error) {
	if err := validation.Login(&in); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.IsLocked {
		s.audit.Record(ctx, event(models.EventLoginFailed, nil, idPtr(u.ID), "login attempt on locked account", nil))
		return nil, ErrAccountLocked
	}

	if err := verifyPassword(u.PasswordHash, in.Password); err != nil {
		return nil, s.loginFailed(ctx, u.ID)
	}

	now := time.Now().UTC()
	if err := s.users.RecordLoginSuccess(ctx, u.ID, now); err != nil {
		return nil, err
	}
	pair, err := s.issuePair(ctx, u.ID, u.Role)
	if err != nil {
		return nil, err
	}

	s.log.Infow("auth_login_succeeded", "user_id", u.ID)
	s.audit.Record(ctx, event(models.EventLoginSucceeded, idPtr(u.ID), idPtr(u.ID), "login succeeded", nil))
	return pair, nil
}

func (s *AuthService) loginFailed(ctx context.Context, id uuid.UUID) error {
	attempts, locked, err := s.users.RecordLoginFailure(ctx, id, s.maxAttempts)
	if err != nil {
		return err
	}

	s.log.Infow("auth_login_failed", "user_id", id, "attempts", attempts)
	s.audit.Record(ctx, event(models.EventLoginFailed, nil, idPtr(id), "wrong password",
		map[string]any{"attempts": attempts}))

	if !locked {
		return ErrInvalidCredentials
	}
	s.principals.Invalidate(id)
	s.log.Infow("auth_account_locked", "user_id", id, "attempts", attempts)
	s.audit.Record(ctx, event(models.EventAccountLocked, nil, idPtr(id), "too many failed logins",
		map[string]any{"attempts": attempts, "max_attempts": s.maxAttempts}))
	return ErrAccountLocked
}

// Refresh exchanges a refresh token for a new pair. The old token is revoked,
// so each refresh token works once.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*models.TokenPair, error) {
	userID, jti, err := s.parseRefresh(raw)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row, err := s.tokens.Get(ctx, jti)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if row.UserID != userID || !row.Active(now) {
		return nil, ErrInvalidToken
	}

	revoked, err := s.tokens.Revoke(ctx, jti, now)
	if err != nil {
		return nil, err
	}
	if !revoked {
		// lost a race with another refresh or logout
		return nil, ErrInvalidToken
	}

	u, err := getUser(ctx, s.users, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if u.IsLocked {
		return nil, ErrAccountLocked
	}

	pair, err := s.issuePair(ctx, u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, event(models.EventTokenRefreshed, idPtr(u.ID), idPtr(u.ID), "token refreshed", nil))
	return pair, nil
}

// Logout revokes the refresh token. Unknown or already revoked tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	userID, jti, err := s.parseRefresh(raw)
	if err != nil {
		return err
	}

	revoked, err := s.tokens.Revoke(ctx, jti, time.Now().UTC())
	if err != nil {
		return err
	}
	if revoked {
		s.audit.Record(ctx, event(models.EventLogout, idPtr(userID), idPtr(userID), "logged out", nil))
	}
	return nil
}

// ParseToken parses an access JWT and returns its subject and role.
func (s *AuthService) ParseToken(accessToken string) (*Claims, error) {
	c, err := s.issuer.parse(accessToken, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil || !c.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return &Claims{UserID: id, Role: c.Role}, nil
}

// Principal returns the current role and lock state of id, cached briefly.
func (s *AuthService) Principal(ctx context.Context, id uuid.UUID) (cache.Principal, error) {
	return s.principals.Get(ctx, id)
}

// EnsureAdmin creates an ADMIN account for email unless one already exists.
// It reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" {
		return false, nil
	}
	normalized, err := validation.NormalizeEmail(email)
	if err != nil {
		return false, fmt.Errorf("admin email: %w", err)
	}
	if err := validation.Password(password); err != nil {
		return false, fmt.Errorf("admin password: %w", err)
	}

	_, err = s.users.GetByEmail(ctx, normalized)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, err
	}

	nick, err := s.pickNickname(ctx, normalized, nil)
	if err != nil {
		return false, err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return false, err
	}

	u := &models.User{
		Email:        normalized,
		Nickname:     nick,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return false, takenError(err)
	}

	s.log.Infow("auth_admin_seeded", "user_id", u.ID, "email", u.Email)
	s.audit.Record(ctx, event(models.EventUserRegistered, nil, idPtr(u.ID), "administrator seeded",
		map[string]any{"role": models.RoleAdmin}))
	return true, nil
}

// issuePair signs both tokens and stores the refresh token row.
func (s *AuthService) issuePair(ctx context.Context, userID uuid.UUID, role models.Role) (*models.TokenPair, error) {
	access, err := s.issuer.issueAccess(userID, role)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	jti := uuid.New()
	refresh, exp, err := s.issuer.issueRefresh(userID, jti)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.tokens.Create(ctx, models.RefreshToken{ID: jti, UserID: userID, ExpiresAt: exp}); err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.issuer.accessTTL.Seconds()),
	}, nil
}

func (s *AuthService) parseRefresh(raw string) (userID, jti uuid.UUID, err error) {
	c, err := s.issuer.parse(raw, tokenTypeRefresh)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	userID, err = uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}
	jti, err = uuid.Parse(c.ID)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}
	return userID, jti, nil
}

// bcrypt only reads 72 bytes; longer passwords are pre-hashed so every byte counts.
const bcryptMaxInput = 72

func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// helper: hash password safely
func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// helper: verify password against hash
func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password))
}

// takenError maps a unique violation to the matching domain error.
func takenError(err error) error {
	var dup *repository.DuplicateError
	if !errors.As(err, &dup) {
		return err
	}
	switch dup.Column {
	case "nickname":
		return ErrNicknameTaken
	default:
		return ErrEmailTaken
	}
}

// getUser loads a user and maps a missing row to ErrUserNotFound.
func getUser(ctx context.Context, users repository.UserRepo, id uuid.UUID) (*models.User, error) {
	u, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
