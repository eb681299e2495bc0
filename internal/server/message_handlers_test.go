package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type likedResponse struct {
	Liked bool `json:"liked"`
}

func TestCreateMessage(t *testing.T) {
	ts := newTestServer(t)
	alice, cookie := ts.signup("alice")

	msg := ts.post(cookie, "hello world")
	assert.NotZero(t, msg.ID)
	assert.Equal(t, "hello world", msg.Text)
	assert.Equal(t, alice.ID, msg.UserID)
	assert.Equal(t, "alice", msg.User.Username)
	assert.False(t, msg.Timestamp.IsZero())

	// Exactly at the limit, counted in characters not bytes.
	ts.post(cookie, strings.Repeat("é", models.MaxMessageLength))

	for name, text := range map[string]string{
		"empty":    "",
		"blank":    "   ",
		"too long": strings.Repeat("a", models.MaxMessageLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			resp := ts.do(http.MethodPost, "/api/messages", map[string]string{"text": text}, cookie)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, models.CodeInvalidText, decodeError(t, resp).Code)
		})
	}
}

func TestGetAndDeleteMessage(t *testing.T) {
	ts := newTestServer(t)
	_, aliceCookie := ts.signup("alice")
	_, bobCookie := ts.signup("bob")
	msg := ts.post(aliceCookie, "mine")
	path := fmt.Sprintf("/api/messages/%d", msg.ID)

	resp := ts.do(http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got messageView
	decodeJSON(t, resp, &got)
	assert.Equal(t, "mine", got.Text)
	assert.Equal(t, "alice", got.User.Username)

	resp = ts.do(http.MethodDelete, path, nil, bobCookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, path, nil, nil).StatusCode)

	resp = ts.do(http.MethodDelete, path, nil, aliceCookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, path, nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, path, nil, aliceCookie).StatusCode)
}

func TestLikes(t *testing.T) {
	ts := newTestServer(t)
	_, aliceCookie := ts.signup("alice")
	bob, bobCookie := ts.signup("bob")
	msg := ts.post(aliceCookie, "like me")
	likePath := fmt.Sprintf("/api/messages/%d/like", msg.ID)
	togglePath := fmt.Sprintf("/api/messages/%d/toggle-like", msg.ID)

	resp := ts.do(http.MethodPost, likePath, nil, bobCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var liked likedResponse
	decodeJSON(t, resp, &liked)
	assert.True(t, liked.Liked)

	resp = ts.do(http.MethodPost, likePath, nil, bobCookie)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeAlreadyLiked, decodeError(t, resp).Code)

	resp = ts.do(http.MethodPost, likePath, nil, aliceCookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeSelfLike, decodeError(t, resp).Code)

	var likers []models.User
	decodeJSON(t, ts.do(http.MethodGet, fmt.Sprintf("/api/messages/%d/likers", msg.ID), nil, nil), &likers)
	assert.Equal(t, []string{"bob"}, usernames(likers))

	var likes []messageView
	decodeJSON(t, ts.do(http.MethodGet, fmt.Sprintf("/api/users/%d/likes", bob.ID), nil, bobCookie), &likes)
	require.Len(t, likes, 1)
	assert.Equal(t, msg.ID, likes[0].ID)
	assert.True(t, likes[0].Liked)

	var profile struct {
		Stats models.UserStats `json:"stats"`
	}
	decodeJSON(t, ts.do(http.MethodGet, fmt.Sprintf("/api/users/%d", bob.ID), nil, nil), &profile)
	assert.Equal(t, int64(1), profile.Stats.Likes)

	resp = ts.do(http.MethodPost, togglePath, nil, bobCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &liked)
	assert.False(t, liked.Liked)

	resp = ts.do(http.MethodDelete, likePath, nil, bobCookie)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeNotLiked, decodeError(t, resp).Code)

	resp = ts.do(http.MethodPost, togglePath, nil, bobCookie)
	decodeJSON(t, resp, &liked)
	assert.True(t, liked.Liked)

	resp = ts.do(http.MethodDelete, likePath, nil, bobCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &liked)
	assert.False(t, liked.Liked)
}

func TestUserMessages_NewestFirst(t *testing.T) {
	ts := newTestServer(t)
	alice, cookie := ts.signup("alice")
	for _, text := range []string{"one", "two", "three"} {
		ts.post(cookie, text)
	}

	var msgs []messageView
	decodeJSON(t, ts.do(http.MethodGet, fmt.Sprintf("/api/users/%d/messages", alice.ID), nil, nil), &msgs)
	require.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.After(msgs[i-1].Timestamp), "messages must be newest first")
	}

	var limited []messageView
	decodeJSON(t, ts.do(http.MethodGet, fmt.Sprintf("/api/users/%d/messages?limit=2", alice.ID), nil, nil), &limited)
	assert.Len(t, limited, 2)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/users/999/messages", nil, nil).StatusCode)
}

func TestTimeline(t *testing.T) {
	ts := newTestServer(t)
	_, aliceCookie := ts.signup("alice")
	bob, bobCookie := ts.signup("bob")
	_, carolCookie := ts.signup("carol")

	ts.post(aliceCookie, "alice speaks")
	bobMsg := ts.post(bobCookie, "bob speaks")
	ts.post(carolCookie, "carol speaks")

	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, fmt.Sprintf("/api/users/follow/%d", bob.ID), nil, aliceCookie).StatusCode)
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, fmt.Sprintf("/api/messages/%d/like", bobMsg.ID), nil, aliceCookie).StatusCode)

	resp := ts.do(http.MethodGet, "/api/timeline", nil, aliceCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var feed []messageView
	decodeJSON(t, resp, &feed)

	texts := make([]string, 0, len(feed))
	for _, m := range feed {
		texts = append(texts, m.Text)
		assert.Equal(t, m.ID == bobMsg.ID, m.Liked)
	}
	assert.ElementsMatch(t, []string{"alice speaks", "bob speaks"}, texts)
	for i := 1; i < len(feed); i++ {
		assert.False(t, feed[i].Timestamp.After(feed[i-1].Timestamp))
	}
}
