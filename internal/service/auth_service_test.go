package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"warbler/internal/credentials"
	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_Signup_Validation(t *testing.T) {
	t.Parallel()

	valid := SignupInput{Username: "alice", Email: "alice@test.com", Password: "secret1"}
	tests := []struct {
		name   string
		mutate func(*SignupInput)
	}{
		{"short username", func(in *SignupInput) { in.Username = "ab" }},
		{"username with spaces", func(in *SignupInput) { in.Username = "bad name" }},
		{"bad email", func(in *SignupInput) { in.Email = "not-an-email" }},
		{"short password", func(in *SignupInput) { in.Password = "12345" }},
		{"overlong password", func(in *SignupInput) { in.Password = strings.Repeat("p", 73) }},
		{"bad image url", func(in *SignupInput) { in.ImageURL = "ftp://example.com/a.png" }},
		{"overlong bio", func(in *SignupInput) { in.Bio = strings.Repeat("b", 501) }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := noopUserRepo()
			repo.createFn = func(context.Context, *models.User) error {
				t.Fatal("Create must not be called for invalid input")
				return nil
			}
			svc := NewAuthService(repo, credentials.NewHasher(bcrypt.MinCost))

			in := valid
			tt.mutate(&in)
			_, err := svc.Signup(context.Background(), in)
			assertValidationError(t, err)
		})
	}
}

func TestAuthService_Signup_HashesAndDefaults(t *testing.T) {
	t.Parallel()
	var saved *models.User
	repo := noopUserRepo()
	repo.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 1
		saved = u
		return nil
	}
	svc := NewAuthService(repo, credentials.NewHasher(bcrypt.MinCost))

	user, err := svc.Signup(context.Background(), SignupInput{
		Username: "  alice ",
		Email:    "alice@test.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "secret1", saved.Password)
	assert.True(t, strings.HasPrefix(saved.Password, "$2a$04$"))
	assert.Equal(t, models.DefaultImageURL, user.ImageURL)
	assert.Equal(t, models.DefaultHeaderImageURL, user.HeaderImageURL)
	assert.Empty(t, user.Bio)
	assert.Empty(t, user.Location)
}

func TestAuthService_Signup_DuplicatePropagates(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	repo.createFn = func(context.Context, *models.User) error { return models.ErrDuplicateIdentity }
	svc := NewAuthService(repo, credentials.NewHasher(bcrypt.MinCost))

	user, err := svc.Signup(context.Background(), SignupInput{Username: "alice", Email: "alice@test.com", Password: "secret1"})
	assert.Nil(t, user)
	assert.ErrorIs(t, err, models.ErrDuplicateIdentity)
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()
	hasher := credentials.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)

	repo := noopUserRepo()
	repo.getByUsernameFn = func(_ context.Context, username string) (*models.User, error) {
		if username == "alice" {
			return &models.User{ID: 1, Username: "alice", Password: hash}, nil
		}
		return nil, nil
	}
	svc := NewAuthService(repo, hasher)

	t.Run("correct password", func(t *testing.T) {
		t.Parallel()
		user, err := svc.Authenticate(context.Background(), "alice", "secret1")
		require.NoError(t, err)
		assert.Equal(t, uint(1), user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		user, err := svc.Authenticate(context.Background(), "alice", "wrong")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, models.ErrAuthenticationFailed)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		user, err := svc.Authenticate(context.Background(), "nobody", "secret1")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, models.ErrAuthenticationFailed)
	})

	t.Run("repository failure is not an auth failure", func(t *testing.T) {
		t.Parallel()
		failing := noopUserRepo()
		failing.getByUsernameFn = func(context.Context, string) (*models.User, error) {
			return nil, models.NewInternalError(errors.New("db down"))
		}
		user, err := NewAuthService(failing, hasher).Authenticate(context.Background(), "alice", "secret1")
		assert.Nil(t, user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrAuthenticationFailed)
	})
}

func TestAuthService_Authenticate_RehashesOldCost(t *testing.T) {
	t.Parallel()
	old, err := credentials.NewHasher(bcrypt.MinCost).Hash("secret1")
	require.NoError(t, err)

	var updated *models.User
	repo := noopUserRepo()
	repo.getByUsernameFn = func(context.Context, string) (*models.User, error) {
		return &models.User{ID: 1, Username: "alice", Password: old}, nil
	}
	repo.updateFn = func(_ context.Context, u *models.User) error {
		updated = u
		return nil
	}

	current := credentials.NewHasher(bcrypt.MinCost + 1)
	user, err := NewAuthService(repo, current).Authenticate(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.False(t, current.NeedsRehash(user.Password))
	assert.True(t, current.Verify(user.Password, "secret1"))
}

func TestAuthService_Authenticate_RehashFailureStillLogsIn(t *testing.T) {
	t.Parallel()
	old, err := credentials.NewHasher(bcrypt.MinCost).Hash("secret1")
	require.NoError(t, err)

	repo := noopUserRepo()
	repo.getByUsernameFn = func(context.Context, string) (*models.User, error) {
		return &models.User{ID: 1, Username: "alice", Password: old}, nil
	}
	repo.updateFn = func(context.Context, *models.User) error { return errors.New("write failed") }

	user, err := NewAuthService(repo, credentials.NewHasher(bcrypt.MinCost+1)).Authenticate(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, old, user.Password)
}

func TestAuthService_SignupThenAuthenticate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.signup(t, "testuser")

	var stored models.User
	require.NoError(t, env.db.First(&stored, user.ID).Error)
	assert.NotEqual(t, "password", stored.Password)

	got, err := env.auth.Authenticate(ctx, "testuser", "password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = env.auth.Authenticate(ctx, "testuser", "wrong-password")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, models.ErrAuthenticationFailed)

	_, err = env.auth.Signup(ctx, SignupInput{Username: "testuser", Email: "other@test.com", Password: "password"})
	assert.ErrorIs(t, err, models.ErrDuplicateIdentity)
	_, err = env.auth.Signup(ctx, SignupInput{Username: "other", Email: "testuser@test.com", Password: "password"})
	assert.ErrorIs(t, err, models.ErrDuplicateIdentity)
}
