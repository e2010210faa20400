package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

type userRepository interface {
	ListProfiles(ctx context.Context) ([]models.UserProfile, error)
	FindProfile(ctx context.Context, id string) (*models.UserProfile, error)
	RolesFor(ctx context.Context, userID string) ([]models.Role, error)
	ReplaceRoles(ctx context.Context, userID string, roles []models.Role) error
}

// SetRolesRequest replaces every role of a user. An empty list revokes all access.
type SetRolesRequest struct {
	Roles []models.Role `json:"roles"`
}

// UserService handles portal user administration. Accounts themselves live in the
// auth provider; only profiles and role rows are managed here.
type UserService struct {
	repo   userRepository
	audit  auditRecorder
	logger *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditRecorder, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, audit: audit, logger: logger}
}

// List returns every profile with its roles.
func (s *UserService) List(ctx context.Context) ([]models.UserProfile, error) {
	users, err := s.repo.ListProfiles(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, nil
}

// Get returns one profile with its roles.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	user, err := s.repo.FindProfile(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	roles, err := s.repo.RolesFor(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user roles")
	}
	if roles == nil {
		roles = []models.Role{}
	}
	user.Roles = roles
	return user, nil
}

// SetRoles replaces the user's roles. Admins cannot drop their own admin role.
func (s *UserService) SetRoles(ctx context.Context, actor models.Actor, userID string, req SetRolesRequest) (*models.UserProfile, error) {
	roles, err := normalizeRoles(req.Roles)
	if err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if actor.Session != nil && actor.Session.UserID == userID &&
		models.CanAccess(current.Roles, models.PermManageUsers) && !models.CanAccess(roles, models.PermManageUsers) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot remove your own user administration access")
	}

	if err := s.repo.ReplaceRoles(ctx, userID, roles); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user roles")
	}
	s.logger.Info("user roles replaced", zap.String("user_id", userID), zap.Any("roles", roles))
	if s.audit != nil {
		s.audit.Record(ctx, actor, models.AuditActionUpdate, models.TableUserRoles, userID,
			map[string]interface{}{"roles": current.Roles},
			map[string]interface{}{"roles": roles},
		)
	}
	current.Roles = roles
	return current, nil
}

func normalizeRoles(roles []models.Role) ([]models.Role, error) {
	seen := make(map[models.Role]struct{}, len(roles))
	out := make([]models.Role, 0, len(roles))
	for _, role := range roles {
		if !role.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role: "+string(role))
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
