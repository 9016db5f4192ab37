package roles

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/rbac"
)

// ErrBadPermission rejects permission names outside resource:action form.
var ErrBadPermission = errors.New("permission must be resource:action")

// Service manages role permission sets. Every change clears the permission
// cache because it can affect any user holding the role.
type Service struct {
	repo     Repository
	rbac     *rbac.Service
	validate *validator.Validate
}

// NewService constructs a role service.
func NewService(repo Repository, rbacSvc *rbac.Service) *Service {
	return &Service{repo: repo, rbac: rbacSvc, validate: validator.New()}
}

func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	return s.repo.Get(ctx, id)
}

// SetPermissions replaces the permission set of a role.
func (s *Service) SetPermissions(ctx context.Context, id int64, req SetPermissionsRequest) (*Role, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	normalized := make([]string, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		p = strings.ToLower(strings.TrimSpace(p))
		parts := strings.Split(p, ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, errors.Join(ErrBadPermission, errors.New(p))
		}
		normalized = append(normalized, p)
	}
	if err := s.repo.ReplacePermissions(ctx, id, normalized); err != nil {
		return nil, err
	}
	if s.rbac != nil {
		s.rbac.InvalidateAll()
	}
	return s.repo.Get(ctx, id)
}
