package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/request-checker/internal/domain"
	"github.com/spec-kit/request-checker/internal/repository"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

// UserService manages user records backing authenticated identities.
type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, logger: logger}
}

// EnsureUserRecord returns the stored user for identity, creating a sales
// record on first sight. Admin and partner records are provisioned out of
// band and never created here.
func (s *UserService) EnsureUserRecord(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return nil, apperrors.NewUnauthorized("identity without subject")
	}

	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if user != nil {
		return user, nil
	}

	user = &domain.User{
		ID:          identity.ID,
		Email:       identity.Email,
		DisplayName: defaultDisplayName(identity),
		Role:        domain.UserRoleSales,
	}
	created, err := s.users.CreateIfAbsent(ctx, user)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !created {
		// Lost a race with a concurrent first request.
		existing, err := s.users.GetByID(ctx, identity.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if existing == nil {
			return nil, apperrors.NewInternalError(nil)
		}
		return existing, nil
	}

	s.logger.Info("user provisioned", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

func defaultDisplayName(identity domain.Identity) string {
	if name := strings.TrimSpace(identity.DisplayName); name != "" {
		return name
	}
	if local, _, found := strings.Cut(identity.Email, "@"); found && local != "" {
		return local
	}
	return identity.Email
}

// GetUser returns the user or NOT_FOUND.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if user == nil {
		return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	return user, nil
}

// ListPartners returns partner users ordered by display name.
func (s *UserService) ListPartners(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListByRole(ctx, domain.UserRolePartner)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}
