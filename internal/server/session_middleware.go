package server

import (
	"log/slog"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/session"

	"github.com/gofiber/fiber/v2"
)

const (
	localSessionToken = "sessionToken"
	localCurrentUser  = "currentUser"
)

// SessionMiddleware resolves the session cookie into a session.State and
// stores it in the request context. Missing, tampered and expired cookies
// resolve to Anonymous; only a failing session store is an error.
func (s *Server) SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := session.Anonymous()

		if token := s.cookieToken(c); token != "" {
			resolved, err := s.sessions.State(c.UserContext(), token)
			if err != nil {
				return models.Respond(c, err)
			}
			st = resolved
			if st.IsAuthenticated() {
				c.Locals(localSessionToken, token)
			}
		}

		if userID, ok := st.UserID(); ok {
			c.Locals("userID", userID)
		}
		c.SetUserContext(session.WithState(c.UserContext(), st))
		return c.Next()
	}
}

// AuthRequired rejects anonymous requests with 401 and loads the current
// user for the handlers behind it. A session whose user has been deleted is
// ended and its cookie cleared.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		st := session.FromContext(ctx)
		if !st.IsAuthenticated() {
			return models.Respond(c, models.ErrUnauthorized)
		}

		user, err := s.sessions.UserFor(ctx, st)
		if err != nil {
			return models.Respond(c, err)
		}
		if user == nil {
			if token := sessionToken(c); token != "" {
				if err := s.sessions.Logout(ctx, token); err != nil {
					middleware.Logger.WarnContext(ctx, "failed to end orphaned session", slog.String("error", err.Error()))
				}
			}
			s.clearSessionCookie(c)
			return models.Respond(c, models.ErrUnauthorized)
		}

		c.Locals(localCurrentUser, user)
		return c.Next()
	}
}

// cookieToken returns the session token carried by the request cookie, or
// "" when there is none or it does not verify.
func (s *Server) cookieToken(c *fiber.Ctx) string {
	value := c.Cookies(session.CookieName)
	if value == "" {
		return ""
	}
	token, err := s.codec.Decode(value)
	if err != nil {
		middleware.Logger.DebugContext(c.UserContext(), "ignoring invalid session cookie", slog.String("error", err.Error()))
		return ""
	}
	return token
}

// sessionToken is the token of the live session resolved for this request.
func sessionToken(c *fiber.Ctx) string {
	token, _ := c.Locals(localSessionToken).(string)
	return token
}

// currentUser is the user loaded by AuthRequired.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localCurrentUser).(*models.User)
	return user
}

// viewerID is the authenticated user's id, or 0 for anonymous requests.
func viewerID(c *fiber.Ctx) uint {
	id, _ := session.FromContext(c.UserContext()).UserID()
	return id
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string) error {
	value, err := s.codec.Encode(token)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(s.config.SessionTTL()),
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
