package rbac

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Service resolves permission sets for authenticated identities.
type Service struct {
	pool  *pgxpool.Pool
	cache *PermissionCache
}

// NewService constructs a Service backed by the provided pool and cache.
func NewService(pool *pgxpool.Pool, cache *PermissionCache) *Service {
	return &Service{pool: pool, cache: cache}
}

// EffectivePermissions returns the permission names granted to the identity.
// Admin identities bypass lookup entirely.
func (s *Service) EffectivePermissions(ctx context.Context, ident shared.Identity) ([]string, error) {
	if ident.IsAdmin {
		return nil, nil
	}
	if perms, ok := s.cache.Get(ident.UserID, ident.Role, ident.BranchID); ok {
		return perms, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN roles r ON r.id = rp.role_id
		WHERE r.name = $1
		ORDER BY p.name`, ident.Role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, strings.ToLower(name))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cache.Set(ident.UserID, ident.Role, ident.BranchID, perms)
	return perms, nil
}

// Has reports whether the identity holds the named permission.
func (s *Service) Has(ctx context.Context, ident shared.Identity, perm string) (bool, error) {
	if ident.IsAdmin {
		return true, nil
	}
	granted, err := s.EffectivePermissions(ctx, ident)
	if err != nil {
		return false, err
	}
	perm = strings.ToLower(strings.TrimSpace(perm))
	for _, g := range granted {
		if g == perm {
			return true, nil
		}
	}
	return false, nil
}

// InvalidateUser drops cached permissions after role or branch changes.
func (s *Service) InvalidateUser(userID int64) {
	s.cache.Invalidate(userID)
}

// InvalidateAll drops the whole permission cache. Role permission changes
// affect every user holding the role, so the per-user invalidation is not
// enough.
func (s *Service) InvalidateAll() {
	s.cache.Clear()
}

// EnsurePermission upserts a permission by name.
func (s *Service) EnsurePermission(ctx context.Context, name, description string) (Permission, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Permission{}, errors.New("rbac: permission name required")
	}
	var perm Permission
	err := s.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id, name, description`, name, strings.TrimSpace(description)).
		Scan(&perm.ID, &perm.Name, &perm.Description)
	if err != nil {
		return Permission{}, err
	}
	return perm, nil
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// GetRoleByName fetches a role.
func (s *Service) GetRoleByName(ctx context.Context, name string) (Role, error) {
	var role Role
	err := s.pool.QueryRow(ctx, `SELECT id, name, description FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}
