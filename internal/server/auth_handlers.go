package server

import (
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

type signupRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	ImageURL       string `json:"image_url"`
	HeaderImageURL string `json:"header_image_url"`
	Bio            string `json:"bio"`
	Location       string `json:"location"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new account and start a session for it
// @Tags auth
// @Accept json
// @Produce json
// @Param request body signupRequest true "Signup request"
// @Success 201 {object} object{user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ctx := c.UserContext()
	user, err := s.authService.Signup(ctx, service.SignupInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		ImageURL:       req.ImageURL,
		HeaderImageURL: req.HeaderImageURL,
		Bio:            req.Bio,
		Location:       req.Location,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	if err := s.replaceSession(c, user.ID); err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Check credentials and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login request"
// @Success 200 {object} object{user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ctx := c.UserContext()
	token, user, err := s.sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}
	s.endCurrentSession(c)
	if err := s.setSessionCookie(c, token); err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"user": user})
}

// replaceSession ends the request's current session, if any, and starts a
// new one for userID with a fresh cookie.
func (s *Server) replaceSession(c *fiber.Ctx, userID uint) error {
	s.endCurrentSession(c)
	token, err := s.sessions.Start(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if err := s.setSessionCookie(c, token); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *Server) endCurrentSession(c *fiber.Ctx) {
	old := sessionToken(c)
	if old == "" {
		return
	}
	ctx := c.UserContext()
	if err := s.sessions.Logout(ctx, old); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to end previous session", slog.String("error", err.Error()))
	}
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description End the current session. Succeeds without a session too.
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.Logout(c.UserContext(), sessionToken(c)); err != nil {
		return models.Respond(c, err)
	}
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "You have successfully logged out."})
}

// Me handles GET /api/auth/me
// @Summary Current session
// @Description Report whether the request is authenticated and as whom
// @Tags auth
// @Produce json
// @Success 200 {object} object{authenticated=bool,user=models.User}
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	token := sessionToken(c)
	user, err := s.sessions.CurrentUser(c.UserContext(), token)
	if err != nil {
		return models.Respond(c, err)
	}
	if user == nil {
		if token != "" {
			s.clearSessionCookie(c)
		}
		return c.JSON(fiber.Map{"authenticated": false})
	}
	return c.JSON(fiber.Map{"authenticated": true, "user": user})
}
