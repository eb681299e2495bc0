package server

import (
	"fmt"
	"net/http"
	"testing"

	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardedRoutes_RequireSession(t *testing.T) {
	ts := newTestServer(t)
	alice, _ := ts.signup("alice")
	id := fmt.Sprint(alice.ID)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/users/" + id + "/following"},
		{http.MethodGet, "/api/users/" + id + "/followers"},
		{http.MethodGet, "/api/users/" + id + "/likes"},
		{http.MethodPost, "/api/users/follow/" + id},
		{http.MethodPost, "/api/users/stop-following/" + id},
		{http.MethodPatch, "/api/users/profile"},
		{http.MethodDelete, "/api/users"},
		{http.MethodPost, "/api/messages"},
		{http.MethodDelete, "/api/messages/1"},
		{http.MethodPost, "/api/messages/1/like"},
		{http.MethodDelete, "/api/messages/1/like"},
		{http.MethodPost, "/api/messages/1/toggle-like"},
		{http.MethodGet, "/api/timeline"},
		{http.MethodGet, "/api/ws"},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			resp := ts.do(r.method, r.path, nil, nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			body := decodeError(t, resp)
			assert.Equal(t, "Access unauthorized.", body.Error)
			assert.Equal(t, models.CodeUnauthorized, body.Code)
		})
	}
}

func TestGetUserProfile(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceCookie := ts.signup("alice")
	bob, bobCookie := ts.signup("bob")
	ts.post(aliceCookie, "first")
	ts.post(aliceCookie, "second")
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, fmt.Sprintf("/api/users/follow/%d", alice.ID), nil, bobCookie).StatusCode)

	tests := []struct {
		name           string
		path           string
		cookie         *http.Cookie
		expectedStatus int
	}{
		{"Success", fmt.Sprintf("/api/users/%d", alice.ID), nil, http.StatusOK},
		{"Invalid ID", "/api/users/abc", nil, http.StatusBadRequest},
		{"Not Found", "/api/users/999", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(http.MethodGet, tt.path, nil, tt.cookie)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	t.Run("counts and follow flag", func(t *testing.T) {
		resp := ts.do(http.MethodGet, fmt.Sprintf("/api/users/%d", alice.ID), nil, bobCookie)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			User        models.User      `json:"user"`
			Stats       models.UserStats `json:"stats"`
			IsFollowing *bool            `json:"is_following"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, "alice", body.User.Username)
		assert.Equal(t, int64(2), body.Stats.Messages)
		assert.Equal(t, int64(1), body.Stats.Followers)
		assert.Equal(t, int64(0), body.Stats.Following)
		require.NotNil(t, body.IsFollowing)
		assert.True(t, *body.IsFollowing)
	})

	t.Run("no follow flag on own profile", func(t *testing.T) {
		resp := ts.do(http.MethodGet, fmt.Sprintf("/api/users/%d", bob.ID), nil, bobCookie)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]any
		decodeJSON(t, resp, &body)
		assert.NotContains(t, body, "is_following")
	})
}

func TestSearchUsers(t *testing.T) {
	ts := newTestServer(t)
	ts.signup("alice")
	ts.signup("alfred")
	ts.signup("bob")

	var all []models.User
	decodeJSON(t, ts.do(http.MethodGet, "/api/users", nil, nil), &all)
	assert.Len(t, all, 3)

	var matched []models.User
	decodeJSON(t, ts.do(http.MethodGet, "/api/users?q=al", nil, nil), &matched)
	assert.ElementsMatch(t, []string{"alice", "alfred"}, usernames(matched))
}

func TestFollowAndStopFollowing(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceCookie := ts.signup("alice")
	bob, bobCookie := ts.signup("bob")

	followPath := fmt.Sprintf("/api/users/follow/%d", bob.ID)
	stopPath := fmt.Sprintf("/api/users/stop-following/%d", bob.ID)

	resp := ts.do(http.MethodPost, followPath, nil, aliceCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var following []models.User
	decodeJSON(t, resp, &following)
	assert.Equal(t, []string{"bob"}, usernames(following))

	resp = ts.do(http.MethodPost, followPath, nil, aliceCookie)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeAlreadyFollowing, decodeError(t, resp).Code)

	var followers []models.User
	decodeJSON(t, ts.do(http.MethodGet, fmt.Sprintf("/api/users/%d/followers", bob.ID), nil, bobCookie), &followers)
	assert.Equal(t, []string{"alice"}, usernames(followers))

	resp = ts.do(http.MethodPost, stopPath, nil, aliceCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	following = nil
	decodeJSON(t, resp, &following)
	assert.Empty(t, following)

	resp = ts.do(http.MethodPost, stopPath, nil, aliceCookie)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeNotFollowing, decodeError(t, resp).Code)

	t.Run("self", func(t *testing.T) {
		resp := ts.do(http.MethodPost, fmt.Sprintf("/api/users/follow/%d", alice.ID), nil, aliceCookie)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, models.CodeSelfFollow, decodeError(t, resp).Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/api/users/follow/999", nil, aliceCookie)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	_, cookie := ts.signup("alice")
	ts.signup("bob")

	t.Run("wrong password", func(t *testing.T) {
		resp := ts.do(http.MethodPatch, "/api/users/profile", map[string]any{
			"password": "not-my-password", "bio": "changed",
		}, cookie)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, models.CodeAuthenticationFailed, decodeError(t, resp).Code)
	})

	t.Run("taken username", func(t *testing.T) {
		resp := ts.do(http.MethodPatch, "/api/users/profile", map[string]any{
			"password": testPassword, "username": "bob",
		}, cookie)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, models.CodeDuplicateIdentity, decodeError(t, resp).Code)
	})

	t.Run("success", func(t *testing.T) {
		resp := ts.do(http.MethodPatch, "/api/users/profile", map[string]any{
			"password": testPassword, "bio": "birdwatcher", "location": "Lisbon",
		}, cookie)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			User models.User `json:"user"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, "alice", body.User.Username)
		assert.Equal(t, "birdwatcher", body.User.Bio)
		assert.Equal(t, "Lisbon", body.User.Location)

		// The password is unchanged.
		resp = ts.do(http.MethodPost, "/api/auth/login", map[string]string{
			"username": "alice", "password": testPassword,
		}, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestDeleteAccount(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceCookie := ts.signup("alice")
	bob, bobCookie := ts.signup("bob")
	msg := ts.post(aliceCookie, "soon gone")

	// A second session for alice must end too.
	resp := ts.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "alice", "password": testPassword,
	}, nil)
	otherSession := sessionCookie(resp)
	require.NotNil(t, otherSession)

	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, fmt.Sprintf("/api/users/follow/%d", bob.ID), nil, aliceCookie).StatusCode)

	resp = ts.do(http.MethodDelete, "/api/users", nil, aliceCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.False(t, ts.me(aliceCookie).Authenticated)
	assert.False(t, ts.me(otherSession).Authenticated)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, fmt.Sprintf("/api/users/%d", alice.ID), nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, fmt.Sprintf("/api/messages/%d", msg.ID), nil, nil).StatusCode)

	var followers []models.User
	decodeJSON(t, ts.do(http.MethodGet, fmt.Sprintf("/api/users/%d/followers", bob.ID), nil, bobCookie), &followers)
	assert.Empty(t, followers)
}
