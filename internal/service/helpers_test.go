package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"warbler/internal/credentials"
	"warbler/internal/database"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, *models.User) error
	deleteFn        func(context.Context, uint) error
	listFn          func(context.Context, int) ([]models.User, error)
	searchFn        func(context.Context, string, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, limit int) ([]models.User, error) {
	return s.listFn(ctx, limit)
}
func (s *userRepoStub) Search(ctx context.Context, q string, limit int) ([]models.User, error) {
	return s.searchFn(ctx, q, limit)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(context.Context, uint) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn:        func(context.Context, *models.User) error { return nil },
		updateFn:        func(context.Context, *models.User) error { return nil },
		deleteFn:        func(context.Context, uint) error { return nil },
		listFn:          func(context.Context, int) ([]models.User, error) { return nil, nil },
		searchFn:        func(context.Context, string, int) ([]models.User, error) { return nil, nil },
	}
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T", err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

// recordingPublisher captures published events per recipient.
type recordingPublisher struct {
	mu     sync.Mutex
	events map[uint][]notifications.Event
	err    error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(map[uint][]notifications.Event)}
}

func (p *recordingPublisher) Publish(_ context.Context, userID uint, evt notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events[userID] = append(p.events[userID], evt)
	return nil
}

func (p *recordingPublisher) For(userID uint) []notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notifications.Event(nil), p.events[userID]...)
}

// testEnv wires every service to one private in-memory database.
type testEnv struct {
	db       *gorm.DB
	users    repository.UserRepository
	follows  repository.FollowRepository
	messages repository.MessageRepository
	hasher   *credentials.Hasher
	events   *recordingPublisher

	auth       *AuthService
	userSvc    *UserService
	followSvc  *FollowService
	messageSvc *MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:?_foreign_keys=on"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return wireTestEnv(db)
}

func wireTestEnv(db *gorm.DB) *testEnv {
	env := &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db, nil),
		follows:  repository.NewFollowRepository(db),
		messages: repository.NewMessageRepository(db),
		hasher:   credentials.NewHasher(bcrypt.MinCost),
		events:   newRecordingPublisher(),
	}
	env.auth = NewAuthService(env.users, env.hasher)
	env.userSvc = NewUserService(env.users, env.follows, env.messages, env.hasher)
	env.followSvc = NewFollowService(env.follows, env.users, env.events)
	env.messageSvc = NewMessageService(env.messages, env.users, env.follows, env.events)
	return env
}

// signup registers username with password "password" and email username@test.com.
func (e *testEnv) signup(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.auth.Signup(context.Background(), SignupInput{
		Username: username,
		Email:    username + "@test.com",
		Password: "password",
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) post(t *testing.T, author *models.User, text string) *models.Message {
	t.Helper()
	msg, err := e.messageSvc.Post(context.Background(), author.ID, text, nil)
	require.NoError(t, err)
	return msg
}
