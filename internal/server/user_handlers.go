package server

import (
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

type profileResponse struct {
	*service.UserProfile
	IsFollowing *bool `json:"is_following,omitempty"`
}

type updateProfileRequest struct {
	Password       string  `json:"password"`
	Username       *string `json:"username"`
	Email          *string `json:"email"`
	ImageURL       *string `json:"image_url"`
	HeaderImageURL *string `json:"header_image_url"`
	Bio            *string `json:"bio"`
	Location       *string `json:"location"`
}

// SearchUsers handles GET /api/users
// @Summary Search users
// @Description Users whose username contains q; every user when q is empty
// @Tags users
// @Produce json
// @Param q query string false "Username fragment"
// @Success 200 {array} models.User
// @Router /users [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.userService.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(users)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get user profile
// @Description A user with message, follow and like counts
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} profileResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	profile, err := s.userService.Profile(ctx, id)
	if err != nil {
		return models.Respond(c, err)
	}

	resp := profileResponse{UserProfile: profile}
	if viewer := viewerID(c); viewer != 0 && viewer != id {
		following, err := s.followService.IsFollowing(ctx, viewer, id)
		if err != nil {
			return models.Respond(c, err)
		}
		resp.IsFollowing = &following
	}
	return c.JSON(resp)
}

// GetFollowing handles GET /api/users/:id/following
// @Summary Users a user follows
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/{id}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	users, err := s.followService.Following(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(users)
}

// GetFollowers handles GET /api/users/:id/followers
// @Summary Users following a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/{id}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	users, err := s.followService.Followers(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(users)
}

// GetUserLikes handles GET /api/users/:id/likes
// @Summary Messages a user likes
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} messageView
// @Failure 401 {object} models.ErrorResponse
// @Router /users/{id}/likes [get]
func (s *Server) GetUserLikes(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()
	msgs, err := s.messageService.LikedMessages(ctx, id)
	if err != nil {
		return models.Respond(c, err)
	}
	views, err := s.messageViews(ctx, viewerID(c), msgs)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(views)
}

// GetUserMessages handles GET /api/users/:id/messages
// @Summary A user's messages
// @Description Newest first
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Max results (default 50, max 100)"
// @Success 200 {array} messageView
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/messages [get]
func (s *Server) GetUserMessages(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()
	msgs, err := s.messageService.UserMessages(ctx, id, parseLimit(c))
	if err != nil {
		return models.Respond(c, err)
	}
	views, err := s.messageViews(ctx, viewerID(c), msgs)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(views)
}

// FollowUser handles POST /api/users/follow/:id
// @Summary Follow a user
// @Description Returns the users the caller now follows
// @Tags users
// @Produce json
// @Param id path int true "User to follow"
// @Success 200 {array} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/follow/{id} [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	me := currentUser(c)
	ctx := c.UserContext()
	if err := s.followService.Follow(ctx, me.ID, id); err != nil {
		return models.Respond(c, err)
	}
	following, err := s.followService.Following(ctx, me.ID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(following)
}

// StopFollowing handles POST /api/users/stop-following/:id
// @Summary Unfollow a user
// @Description Returns the users the caller still follows
// @Tags users
// @Produce json
// @Param id path int true "User to unfollow"
// @Success 200 {array} models.User
// @Failure 409 {object} models.ErrorResponse
// @Router /users/stop-following/{id} [post]
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	me := currentUser(c)
	ctx := c.UserContext()
	if err := s.followService.Unfollow(ctx, me.ID, id); err != nil {
		return models.Respond(c, err)
	}
	following, err := s.followService.Following(ctx, me.ID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(following)
}

// UpdateProfile handles PATCH /api/users/profile
// @Summary Update own profile
// @Description Omitted fields are unchanged. The current password is required.
// @Tags users
// @Accept json
// @Produce json
// @Param request body updateProfileRequest true "Profile changes"
// @Success 200 {object} object{user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/profile [patch]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:          currentUser(c).ID,
		CurrentPassword: req.Password,
		Username:        req.Username,
		Email:           req.Email,
		ImageURL:        req.ImageURL,
		HeaderImageURL:  req.HeaderImageURL,
		Bio:             req.Bio,
		Location:        req.Location,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// DeleteAccount handles DELETE /api/users
// @Summary Delete own account
// @Description Removes the caller with their messages, likes and follows, and ends all their sessions
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /users [delete]
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	me := currentUser(c)
	ctx := c.UserContext()
	if err := s.userService.DeleteAccount(ctx, me.ID); err != nil {
		return models.Respond(c, err)
	}
	// Leftover sessions resolve to no user and are dropped on next use.
	if err := s.sessions.EndAll(ctx, me.ID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to end sessions of deleted user",
			slog.Uint64("user_id", uint64(me.ID)), slog.String("error", err.Error()))
	}
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "Your account has been deleted."})
}
