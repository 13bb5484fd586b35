package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailhub/internal/model"
	"emailhub/internal/repository"
	"emailhub/pkg/util"
)

type memoryUsers struct {
	byEmail map[string]*model.User
	findErr error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: map[string]*model.User{}}
}

func (m *memoryUsers) CreateUser(_ context.Context, u *model.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	u.ID = len(m.byEmail) + 1
	cp := *u
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc := NewService(newMemoryUsers(), "test-secret")

	u, err := svc.Register(context.Background(), " alice@example.com ", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, 1, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "hunter2", u.PasswordHash)

	token, err := svc.Login(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)

	claims, err := util.ParseJWT(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, 1, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestService_RegisterDuplicate(t *testing.T) {
	svc := NewService(newMemoryUsers(), "test-secret")

	_, err := svc.Register(context.Background(), "alice@example.com", "one")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice@example.com", "two")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_LoginFailures(t *testing.T) {
	users := newMemoryUsers()
	svc := NewService(users, "test-secret")
	_, err := svc.Register(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "bob@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	users.findErr = errors.New("connection reset")
	_, err = svc.Login(context.Background(), "alice@example.com", "hunter2")
	assert.EqualError(t, err, "connection reset")
}

func TestService_LoginCorruptStoredHash(t *testing.T) {
	users := newMemoryUsers()
	users.byEmail["alice@example.com"] = &model.User{ID: 7, Email: "alice@example.com", PasswordHash: "plaintext"}
	svc := NewService(users, "test-secret")

	_, err := svc.Login(context.Background(), "alice@example.com", "plaintext")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
