package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlabs/drift/internal/domain"
)

type fakeUserRepo struct {
	users       map[uuid.UUID]*domain.User
	presenceErr error
	presence    []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	u := *user
	r.users[u.ID] = &u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdatePresence(_ context.Context, id uuid.UUID, status string, _ time.Time) error {
	if r.presenceErr != nil {
		return r.presenceErr
	}
	r.presence = append(r.presence, status)
	if u, ok := r.users[id]; ok {
		u.Status = status
	}
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, "test-secret")
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterInput{
		Email:       "maya@example.com",
		Username:    "maya",
		DisplayName: "Maya",
		Password:    "Sup3rSecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, domain.StatusOffline, resp.User.Status)
	assert.NotEqual(t, "Sup3rSecret", resp.User.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Email: "maya@example.com", Username: "other"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = svc.Register(ctx, RegisterInput{Email: "other@example.com", Username: "maya"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	login, err := svc.Login(ctx, LoginInput{Email: "maya@example.com", Password: "Sup3rSecret"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginInput{Email: "maya@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Sup3rSecret"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestResolveUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, "test-secret")
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterInput{
		Email:    "maya@example.com",
		Username: "maya",
		Password: "Sup3rSecret",
	})
	require.NoError(t, err)

	user, err := svc.ResolveUser(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	_, err = svc.ResolveUser(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Token signed with a different secret is rejected.
	other := NewService(repo, "other-secret")
	_, err = other.ResolveUser(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignOutWritesPresence(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, "test-secret")
	ctx := context.Background()

	user := &domain.User{ID: uuid.New(), Status: domain.StatusOnline}
	require.NoError(t, repo.Create(ctx, user))

	svc.SignOut(ctx, user.ID)
	assert.Equal(t, []string{domain.StatusOffline}, repo.presence)
	assert.Equal(t, domain.StatusOffline, repo.users[user.ID].Status)
}

func TestSignOutProceedsWhenPresenceWriteFails(t *testing.T) {
	repo := newFakeUserRepo()
	repo.presenceErr = errors.New("connection refused")
	svc := NewService(repo, "test-secret")

	// Availability wins: no panic, no error surfaced.
	svc.SignOut(context.Background(), uuid.New())
	assert.Empty(t, repo.presence)
}

func TestSessionClear(t *testing.T) {
	user := &domain.User{ID: uuid.New()}
	session := NewSession(user)

	require.NotNil(t, session.User())
	session.Clear()
	assert.Nil(t, session.User())
}
