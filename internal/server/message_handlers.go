package server

import (
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

type createMessageRequest struct {
	Text string `json:"text"`
}

// CreateMessage handles POST /api/messages
// @Summary Post a message
// @Description Text must be 1 to 140 characters. Followers are notified.
// @Tags messages
// @Accept json
// @Produce json
// @Param request body createMessageRequest true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /messages [post]
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	var req createMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.messageService.Post(c.UserContext(), currentUser(c).ID, req.Text, nil)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetMessage handles GET /api/messages/:id
// @Summary Show a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} messageView
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id} [get]
func (s *Server) GetMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()
	msg, err := s.messageService.Get(ctx, id)
	if err != nil {
		return models.Respond(c, err)
	}
	views, err := s.messageViews(ctx, viewerID(c), []models.Message{*msg})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(views[0])
}

// DeleteMessage handles DELETE /api/messages/:id
// @Summary Delete own message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id} [delete]
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.messageService.Delete(c.UserContext(), id, currentUser(c).ID); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted."})
}

// LikeMessage handles POST /api/messages/:id/like
// @Summary Like a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{liked=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /messages/{id}/like [post]
func (s *Server) LikeMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.messageService.Like(c.UserContext(), currentUser(c).ID, id); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"liked": true})
}

// UnlikeMessage handles DELETE /api/messages/:id/like
// @Summary Remove a like
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{liked=bool}
// @Failure 409 {object} models.ErrorResponse
// @Router /messages/{id}/like [delete]
func (s *Server) UnlikeMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.messageService.Unlike(c.UserContext(), currentUser(c).ID, id); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"liked": false})
}

// ToggleLike handles POST /api/messages/:id/toggle-like
// @Summary Toggle a like
// @Description Likes the message if not yet liked, otherwise removes the like
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{liked=bool}
// @Failure 400 {object} models.ErrorResponse
// @Router /messages/{id}/toggle-like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	liked, err := s.messageService.ToggleLike(c.UserContext(), currentUser(c).ID, id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked})
}

// GetMessageLikers handles GET /api/messages/:id/likers
// @Summary Users who like a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {array} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id}/likers [get]
func (s *Server) GetMessageLikers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	users, err := s.messageService.Likers(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(users)
}

// GetTimeline handles GET /api/timeline
// @Summary Home timeline
// @Description Newest messages by the caller and the users they follow, at most 100
// @Tags messages
// @Produce json
// @Success 200 {array} messageView
// @Failure 401 {object} models.ErrorResponse
// @Router /timeline [get]
func (s *Server) GetTimeline(c *fiber.Ctx) error {
	me := currentUser(c)
	ctx := c.UserContext()
	msgs, err := s.messageService.Timeline(ctx, me.ID)
	if err != nil {
		return models.Respond(c, err)
	}
	views, err := s.messageViews(ctx, me.ID, msgs)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(views)
}
