package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	roles map[int64]*Role
}

func (m *memoryRepo) List(_ context.Context) ([]Role, error) {
	var out []Role
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryRepo) ReplacePermissions(_ context.Context, roleID int64, permissions []string) error {
	r, ok := m.roles[roleID]
	if !ok {
		return ErrNotFound
	}
	r.Permissions = permissions
	return nil
}

func TestSetPermissionsNormalizes(t *testing.T) {
	repo := &memoryRepo{roles: map[int64]*Role{1: {ID: 1, Name: "manager"}}}
	svc := NewService(repo, nil)

	role, err := svc.SetPermissions(context.Background(), 1, SetPermissionsRequest{
		Permissions: []string{" Quotations:Approve ", "stock:view"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"quotations:approve", "stock:view"}, role.Permissions)
}

func TestSetPermissionsRejectsBadShape(t *testing.T) {
	repo := &memoryRepo{roles: map[int64]*Role{1: {ID: 1, Name: "manager"}}}
	svc := NewService(repo, nil)

	_, err := svc.SetPermissions(context.Background(), 1, SetPermissionsRequest{
		Permissions: []string{"approve"},
	})
	assert.ErrorIs(t, err, ErrBadPermission)

	_, err = svc.SetPermissions(context.Background(), 1, SetPermissionsRequest{
		Permissions: []string{"quotations:"},
	})
	assert.ErrorIs(t, err, ErrBadPermission)
}

func TestSetPermissionsUnknownRole(t *testing.T) {
	repo := &memoryRepo{roles: map[int64]*Role{}}
	svc := NewService(repo, nil)

	_, err := svc.SetPermissions(context.Background(), 9, SetPermissionsRequest{
		Permissions: []string{"stock:view"},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}
