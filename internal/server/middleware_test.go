package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warbler/internal/models"
	"warbler/internal/session"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	return gormDB, mock
}

// MockUserLookup is a mock of session.UserLookup.
type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestLivenessCheck(t *testing.T) {
	app := fiber.New()
	s := &Server{}
	app.Get("/health/live", s.LivenessCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadinessCheck(t *testing.T) {
	db, dbMock := setupMockDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := &Server{db: db, redis: rdb}
	app := fiber.New()
	app.Get("/health/ready", s.ReadinessCheck)

	type readiness struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body readiness
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "healthy", body.Checks["database"])
		assert.Equal(t, "healthy", body.Checks["redis"])
	})

	t.Run("redis down", func(t *testing.T) {
		dbMock.ExpectPing()
		mr.Close()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		var body readiness
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "healthy", body.Checks["database"])
		assert.Equal(t, "unhealthy", body.Checks["redis"])
	})

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

// newSessionApp wires only the session middleware and AuthRequired over a
// mocked user lookup.
func newSessionApp(t *testing.T, users session.UserLookup) (*fiber.App, *Server, *session.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	store := session.NewStore(rdb, cfg.SessionTTL())
	s := &Server{
		config:   cfg,
		codec:    session.NewCodec(cfg.SessionSecret, cfg.SessionTTL()),
		sessions: session.NewManager(store, nil, users),
	}

	app := fiber.New()
	app.Use(s.SessionMiddleware())
	app.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"state": session.FromContext(c.UserContext()).String()})
	})
	app.Get("/private", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"username": currentUser(c).Username})
	})
	return app, s, store, mr
}

func requestWithCookie(path, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: value})
	}
	return req
}

func TestSessionMiddleware_ResolvesState(t *testing.T) {
	users := new(MockUserLookup)
	app, s, store, _ := newSessionApp(t, users)

	token, err := store.Create(context.Background(), 7)
	require.NoError(t, err)
	valid, err := s.codec.Encode(token)
	require.NoError(t, err)
	forged, err := session.NewCodec("some-other-secret", time.Hour).Encode(token)
	require.NoError(t, err)
	unknown, err := s.codec.Encode("not-a-session")
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie string
		state  string
	}{
		{"no cookie", "", session.Anonymous().String()},
		{"garbage", "not-a-jwt", session.Anonymous().String()},
		{"wrong signature", forged, session.Anonymous().String()},
		{"unknown session", unknown, session.Anonymous().String()},
		{"valid", valid, session.Authenticated(7).String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(requestWithCookie("/state", tt.cookie))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.state, body["state"])
		})
	}
}

func TestSessionMiddleware_StoreDown(t *testing.T) {
	app, s, store, mr := newSessionApp(t, new(MockUserLookup))
	token, err := store.Create(context.Background(), 7)
	require.NoError(t, err)
	cookie, err := s.codec.Encode(token)
	require.NoError(t, err)

	mr.Close()

	resp, err := app.Test(requestWithCookie("/state", cookie), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	users := new(MockUserLookup)
	users.On("GetByID", mock.Anything, uint(7)).Return(&models.User{ID: 7, Username: "alice"}, nil)
	users.On("GetByID", mock.Anything, uint(8)).Return(nil, models.NewNotFoundError("User", 8))

	app, s, store, _ := newSessionApp(t, users)
	ctx := context.Background()

	t.Run("live user", func(t *testing.T) {
		token, err := store.Create(ctx, 7)
		require.NoError(t, err)
		cookie, err := s.codec.Encode(token)
		require.NoError(t, err)

		resp, err := app.Test(requestWithCookie("/private", cookie))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
	})

	t.Run("anonymous", func(t *testing.T) {
		resp, err := app.Test(requestWithCookie("/private", ""))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		users.AssertNotCalled(t, "GetByID", mock.Anything, uint(0))
	})

	t.Run("deleted user", func(t *testing.T) {
		token, err := store.Create(ctx, 8)
		require.NoError(t, err)
		cookie, err := s.codec.Encode(token)
		require.NoError(t, err)

		resp, err := app.Test(requestWithCookie("/private", cookie))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		cleared := sessionCookie(resp)
		require.NotNil(t, cleared)
		assert.Empty(t, cleared.Value)

		_, ok, err := store.Lookup(ctx, token)
		require.NoError(t, err)
		assert.False(t, ok, "orphaned session must be ended")
	})

	users.AssertExpectations(t)
}

func TestCORS_AllowsCredentials(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := ts.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestUnknownRoute_NotFound(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(http.MethodGet, "/api/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
