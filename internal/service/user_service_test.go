package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

type fakeUserRepo struct {
	repository.UserRepository
	byUsername map[string]*domain.User
	byID       map[int64]*domain.User
	nextID     int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byUsername: map[string]*domain.User{},
		byID:       map[int64]*domain.User{},
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (int64, error) {
	if _, taken := f.byUsername[user.Username]; taken {
		return 0, errors.New("user already exists")
	}
	f.nextID++
	user.ID = f.nextID
	clone := *user
	f.byUsername[user.Username] = &clone
	f.byID[user.ID] = &clone
	return user.ID, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	user, ok := f.byUsername[username]
	if !ok {
		return nil, errors.New("user not found")
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	user, ok := f.byID[id]
	if !ok {
		return errors.New("user not found")
	}
	user.PasswordHash = hash
	return nil
}

func TestUserRegister_HashesAndSanitizes(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	user, err := svc.Register(context.Background(), "alice", "alice@example.com", "correct horse")
	require.NoError(t, err)

	assert.Empty(t, user.PasswordHash)
	stored := repo.byUsername["alice"]
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "correct horse", stored.PasswordHash)
}

func TestUserRegister_Validation(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), "", "a@b.c", "long enough")
	assert.Error(t, err)

	_, err = svc.Register(context.Background(), "alice", "not-an-email", "long enough")
	assert.Error(t, err)

	_, err = svc.Register(context.Background(), "alice", "a@b.c", "short")
	assert.Error(t, err)
}

func TestUserRegister_DuplicateUsername(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "correct horse")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "other@example.com", "correct horse")
	require.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestUserAuthenticate(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "correct horse")
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.Authenticate(context.Background(), "alice", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserChangePassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	user, err := svc.Register(context.Background(), "alice", "alice@example.com", "correct horse")
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, "wrong", "brand new pass")
	require.ErrorIs(t, err, ErrWrongPassword)

	err = svc.ChangePassword(context.Background(), user.ID, "correct horse", "short")
	require.Error(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, "correct horse", "brand new pass")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "alice", "brand new pass")
	require.NoError(t, err)
}
