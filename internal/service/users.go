package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ChrisAbdo/event-manager/internal/cache"
	"github.com/ChrisAbdo/event-manager/internal/models"
	"github.com/ChrisAbdo/event-manager/internal/repository"
	"github.com/ChrisAbdo/event-manager/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type UserService struct {
	users      repository.UserRepo
	audit      recorder
	principals *cache.Principals
}

func NewUserService(users repository.UserRepo, audit recorder, principals *cache.Principals) *UserService {
	return &UserService{users: users, audit: audit, principals: principals}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return getUser(ctx, s.users, id)
}

// List returns one page of users ordered by creation time.
// The page and the total are fetched concurrently.
func (s *UserService) List(ctx context.Context, p ListParams) (*models.UserPage, error) {
	p = p.normalize()

	var (
		items []models.User
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.users.List(gctx, p.offset(), p.Size)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.users.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.UserPage{Items: items, Total: total, Page: p.Page, Size: p.Size}, nil
}

// UpdateProfile applies a partial update to user id on behalf of actor.
// Role changes need allowRole and must follow models.CanTransition.
func (s *UserService) UpdateProfile(ctx context.Context, actor, id uuid.UUID, in models.UserUpdate, allowRole bool) (*models.User, error) {
	if in.Role != nil && strings.TrimSpace(*in.Role) != "" && !allowRole {
		return nil, ErrRoleChangeDenied
	}
	if err := validation.UserUpdate(&in); err != nil {
		return nil, err
	}

	u, err := getUser(ctx, s.users, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkUnique(ctx, u, in); err != nil {
		return nil, err
	}

	prevRole := u.Role
	if in.Role != nil {
		next := models.Role(*in.Role)
		if !models.CanTransition(u.Role, next) {
			return nil, fmt.Errorf("%w: %s to %s", ErrRoleTransition, u.Role, next)
		}
		u.Role = next
	}
	changed := applyUpdate(u, in)

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, takenError(err)
	}
	s.principals.Invalidate(u.ID)

	if len(changed) > 0 {
		s.audit.Record(ctx, event(models.EventProfileUpdated, idPtr(actor), idPtr(u.ID), "profile updated",
			map[string]any{"fields": changed}))
	}
	if u.Role != prevRole {
		s.audit.Record(ctx, event(models.EventRoleChanged, idPtr(actor), idPtr(u.ID), "role changed",
			map[string]any{"from": prevRole, "to": u.Role}))
	}
	return u, nil
}

// checkUnique makes sure a changed email or nickname is still free.
func (s *UserService) checkUnique(ctx context.Context, u *models.User, in models.UserUpdate) error {
	g, gctx := errgroup.WithContext(ctx)
	var emailTaken, nickTaken bool
	if in.Email != nil && *in.Email != u.Email {
		g.Go(func() error {
			var err error
			emailTaken, err = s.users.ExistsByEmail(gctx, *in.Email, u.ID)
			return err
		})
	}
	if in.Nickname != nil && *in.Nickname != u.Nickname {
		g.Go(func() error {
			var err error
			nickTaken, err = s.users.ExistsByNickname(gctx, *in.Nickname, u.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	switch {
	case emailTaken:
		return ErrEmailTaken
	case nickTaken:
		return ErrNicknameTaken
	}
	return nil
}

// applyUpdate copies the present fields of in onto u and returns their names.
func applyUpdate(u *models.User, in models.UserUpdate) []string {
	var changed []string
	if in.Email != nil {
		u.Email = *in.Email
		changed = append(changed, "email")
	}
	if in.Nickname != nil {
		u.Nickname = *in.Nickname
		changed = append(changed, "nickname")
	}
	for _, f := range []struct {
		name string
		src  *string
		dst  **string
	}{
		{"first_name", in.FirstName, &u.FirstName},
		{"last_name", in.LastName, &u.LastName},
		{"bio", in.Bio, &u.Bio},
		{"profile_picture_url", in.ProfilePictureURL, &u.ProfilePictureURL},
		{"linkedin_profile_url", in.LinkedInProfileURL, &u.LinkedInProfileURL},
		{"github_profile_url", in.GitHubProfileURL, &u.GitHubProfileURL},
	} {
		if f.src != nil {
			v := *f.src
			*f.dst = &v
			changed = append(changed, f.name)
		}
	}
	return changed
}

// SetProfessional flips the professional flag of id.
func (s *UserService) SetProfessional(ctx context.Context, actor, id uuid.UUID, professional bool) (*models.User, error) {
	u, err := getUser(ctx, s.users, id)
	if err != nil {
		return nil, err
	}
	if u.IsProfessional == professional {
		return u, nil
	}

	u.IsProfessional = professional
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.audit.Record(ctx, event(models.EventProfessionalChanged, idPtr(actor), idPtr(u.ID), "professional status changed",
		map[string]any{"is_professional": professional}))
	return u, nil
}

// Unlock clears the lock and the failed login counter of id.
func (s *UserService) Unlock(ctx context.Context, actor, id uuid.UUID) (*models.User, error) {
	if err := s.users.SetLocked(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.principals.Invalidate(id)
	s.audit.Record(ctx, event(models.EventAccountUnlocked, idPtr(actor), idPtr(id), "account unlocked", nil))
	return getUser(ctx, s.users, id)
}

// Delete removes id. Nobody can delete their own account this way.
func (s *UserService) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if actor == id {
		return ErrSelfDelete
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.principals.Invalidate(id)
	s.audit.Record(ctx, event(models.EventUserDeleted, idPtr(actor), idPtr(id), "user deleted", nil))
	return nil
}
