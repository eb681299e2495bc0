package session

import (
	"context"
	"errors"
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"
)

// Authenticator checks a username and password.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// UserLookup loads a user by id, returning a not-found error when absent.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// Manager logs users in and out and resolves session tokens.
type Manager struct {
	store *Store
	auth  Authenticator
	users UserLookup
}

// NewManager returns a Manager.
func NewManager(store *Store, auth Authenticator, users UserLookup) *Manager {
	return &Manager{store: store, auth: auth, users: users}
}

// Login checks the credentials and starts a fresh session on success. On
// failure no session is created.
func (m *Manager) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := m.auth.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	token, err := m.Start(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Start opens a session for userID, as after signup.
func (m *Manager) Start(ctx context.Context, userID uint) (string, error) {
	token, err := m.store.Create(ctx, userID)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

// Logout ends the session. Unknown and empty tokens are a no-op, so
// repeated logouts succeed.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if err := m.store.Delete(ctx, token); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// EndAll ends every session of userID, as when the account is deleted.
func (m *Manager) EndAll(ctx context.Context, userID uint) error {
	if err := m.store.DeleteUser(ctx, userID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// State resolves token to Anonymous or Authenticated.
func (m *Manager) State(ctx context.Context, token string) (State, error) {
	userID, ok, err := m.store.Lookup(ctx, token)
	if err != nil {
		return Anonymous(), models.NewInternalError(err)
	}
	if !ok {
		return Anonymous(), nil
	}
	return Authenticated(userID), nil
}

// CurrentUser returns the user behind token, or nil when anonymous. A
// session whose user no longer exists is dropped and treated as anonymous.
func (m *Manager) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	st, err := m.State(ctx, token)
	if err != nil {
		return nil, err
	}
	return m.userFor(ctx, st, token)
}

// UserFor loads the user of an already resolved state.
func (m *Manager) UserFor(ctx context.Context, st State) (*models.User, error) {
	return m.userFor(ctx, st, "")
}

func (m *Manager) userFor(ctx context.Context, st State, token string) (*models.User, error) {
	userID, ok := st.UserID()
	if !ok {
		return nil, nil
	}
	user, err := m.users.GetByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		if token != "" {
			if dropErr := m.store.Delete(ctx, token); dropErr != nil {
				middleware.Logger.WarnContext(ctx, "failed to drop orphaned session",
					slog.Uint64("user_id", uint64(userID)),
					slog.String("error", dropErr.Error()),
				)
			}
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RequireAuthenticated returns the user behind token or ErrUnauthorized.
func (m *Manager) RequireAuthenticated(ctx context.Context, token string) (*models.User, error) {
	user, err := m.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrUnauthorized
	}
	return user, nil
}
