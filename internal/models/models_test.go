package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	custom := &AppError{Code: CodeNotFound, Message: "User with ID 3 not found"}
	assert.True(t, errors.Is(custom, ErrNotFound))
	assert.True(t, errors.Is(NewNotFoundError("Message", 9), ErrNotFound))
	assert.False(t, errors.Is(custom, ErrUnauthorized))

	wrapped := fmt.Errorf("lookup: %w", ErrAlreadyLiked)
	assert.True(t, errors.Is(wrapped, ErrAlreadyLiked))

	cause := errors.New("disk full")
	internal := NewInternalError(cause)
	assert.ErrorIs(t, internal, cause)
	assert.Equal(t, "Internal server error: disk full", internal.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NewValidationError("bad"), http.StatusBadRequest},
		{ErrInvalidText, http.StatusBadRequest},
		{ErrSelfFollowNotAllowed, http.StatusBadRequest},
		{ErrSelfLikeNotAllowed, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrAuthenticationFailed, http.StatusUnauthorized},
		{NewNotFoundError("User", 1), http.StatusNotFound},
		{ErrDuplicateIdentity, http.StatusConflict},
		{ErrAlreadyFollowing, http.StatusConflict},
		{ErrNotFollowing, http.StatusConflict},
		{ErrAlreadyLiked, http.StatusConflict},
		{ErrNotLiked, http.StatusConflict},
		{NewInternalError(errors.New("x")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestRespond_HidesInternalDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/internal", func(c *fiber.Ctx) error {
		return Respond(c, NewInternalError(errors.New("password=hunter2")))
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return Respond(c, errors.New("boom"))
	})
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return Respond(c, ErrAlreadyFollowing)
	})

	for path, want := range map[string]ErrorResponse{
		"/internal": {Error: "Internal server error", Code: CodeInternal},
		"/plain":    {Error: "Internal server error", Code: CodeInternal},
		"/conflict": {Error: ErrAlreadyFollowing.Message, Code: CodeAlreadyFollowing},
	} {
		t.Run(path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, want, body)
		})
	}
}

func TestValidateMessageText(t *testing.T) {
	assert.NoError(t, ValidateMessageText("hi"))
	assert.NoError(t, ValidateMessageText(strings.Repeat("ü", MaxMessageLength)))
	assert.ErrorIs(t, ValidateMessageText(""), ErrInvalidText)
	assert.ErrorIs(t, ValidateMessageText(" \t\n"), ErrInvalidText)
	assert.ErrorIs(t, ValidateMessageText(strings.Repeat("a", MaxMessageLength+1)), ErrInvalidText)
}

func TestApplyProfileDefaults(t *testing.T) {
	u := &User{ImageURL: "https://example.com/me.png"}
	u.ApplyProfileDefaults()
	assert.Equal(t, "https://example.com/me.png", u.ImageURL)
	assert.Equal(t, DefaultHeaderImageURL, u.HeaderImageURL)

	raw, err := json.Marshal(User{Username: "alice", Password: "$2a$12$secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
}
