package users

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
)

// Service implements user account administration. Role and branch changes
// invalidate the permission cache so new rights take effect on the next
// request instead of after the cache TTL.
type Service struct {
	repo     Repository
	rbac     *rbac.Service
	validate *validator.Validate
}

// NewService constructs a user service.
func NewService(repo Repository, rbacSvc *rbac.Service) *Service {
	return &Service{repo: repo, rbac: rbacSvc, validate: validator.New()}
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]User, int, error) {
	return s.repo.List(ctx, search, limit, offset)
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := User{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		BranchID: req.BranchID,
		IsHQ:     req.IsHQ,
		IsAdmin:  req.Role == rbac.RoleAdmin,
	}
	id, err := s.repo.Create(ctx, u, hash)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateUserRequest) (*User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	permsChanged := false
	if req.FullName != nil {
		current.FullName = *req.FullName
	}
	if req.Role != nil && *req.Role != current.Role {
		current.Role = *req.Role
		permsChanged = true
	}
	if req.BranchID != nil && *req.BranchID != current.BranchID {
		current.BranchID = *req.BranchID
		permsChanged = true
	}
	if req.IsHQ != nil && *req.IsHQ != current.IsHQ {
		current.IsHQ = *req.IsHQ
		permsChanged = true
	}
	if req.IsActive != nil {
		current.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, id, *current); err != nil {
		return nil, err
	}
	if permsChanged && s.rbac != nil {
		s.rbac.InvalidateUser(id)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) ChangePassword(ctx context.Context, id int64, req ChangePasswordRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, id, hash)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	if s.rbac != nil {
		s.rbac.InvalidateUser(id)
	}
	return nil
}
