package service

import (
	"context"
	"testing"
	"time"

	"event-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepository struct {
	users map[string]*domain.User
}

func (r *fakeUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepository) Create(_ context.Context, user *domain.User) error {
	r.users[user.Username] = user
	return nil
}

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &fakeUserRepository{users: map[string]*domain.User{
		"alice": {
			Username:     "alice",
			PasswordHash: string(hash),
			Sources:      []string{"OSINT", "Partner Feed"},
		},
	}}
	return NewAuthService(repo, "test-secret", time.Hour)
}

func TestLoginAndParseToken(t *testing.T) {
	svc := newTestAuthService(t)

	token, err := svc.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.False(t, claims.Admin)
	assert.Equal(t, []string{"OSINT", "Partner Feed"}, claims.Sources)

	user := claims.User()
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, []string{"OSINT", "Partner Feed"}, user.Sources)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody", "hunter2")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestParseTokenWrongSecret(t *testing.T) {
	svc := newTestAuthService(t)

	token, err := svc.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	other := NewAuthService(&fakeUserRepository{}, "other-secret", time.Hour)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.ParseToken("not.a.token")
	assert.Error(t, err)
}
