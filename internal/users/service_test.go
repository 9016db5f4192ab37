package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryRepo struct {
	users     map[int64]*User
	passwords map[int64]string
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[int64]*User{}, passwords: map[int64]string{}, nextID: 1}
}

func (m *memoryRepo) List(_ context.Context, _ string, _, _ int) ([]User, int, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryRepo) Create(_ context.Context, u User, passwordHash string) (int64, error) {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return 0, ErrDuplicate
		}
	}
	id := m.nextID
	m.nextID++
	u.ID = id
	u.IsActive = true
	u.CreatedAt = time.Now()
	m.users[id] = &u
	m.passwords[id] = passwordHash
	return id, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, u User) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	u.ID = id
	m.users[id] = &u
	return nil
}

func (m *memoryRepo) SetPassword(_ context.Context, id int64, passwordHash string) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	m.passwords[id] = passwordHash
	return nil
}

func (m *memoryRepo) Deactivate(_ context.Context, id int64) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsActive = false
	return nil
}

func createRequest() CreateUserRequest {
	return CreateUserRequest{
		Email:    "sam@meridian.local",
		FullName: "Sam Staff",
		Password: "s3cret-pass",
		Role:     "staff",
		BranchID: 2,
	}
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	u, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsAdmin)

	hash := repo.passwords[u.ID]
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pass")))
}

func TestCreateAdminRoleSetsFlag(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	req := createRequest()
	req.Role = "admin"
	u, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
}

func TestCreateDuplicateEmail(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), createRequest())
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUpdateChangesRoleAndBranch(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	u, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	role := "manager"
	branch := int64(5)
	u, err = svc.Update(context.Background(), u.ID, UpdateUserRequest{Role: &role, BranchID: &branch})
	require.NoError(t, err)
	assert.Equal(t, "manager", u.Role)
	assert.Equal(t, int64(5), u.BranchID)
}

func TestDeactivate(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	u, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), u.ID))
	got, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}
