package server

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// parseLimit reads the limit query parameter, clamped to (0, maxListLimit].
func parseLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "messageId" -> "message ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// messageView is a message as shown to a particular viewer.
type messageView struct {
	models.Message
	Liked bool `json:"liked"`
}

// messageViews marks the messages viewerID likes. Anonymous viewers
// (viewerID 0) see every message unliked.
func (s *Server) messageViews(ctx context.Context, viewerID uint, msgs []models.Message) ([]messageView, error) {
	views := make([]messageView, len(msgs))
	for i := range msgs {
		views[i].Message = msgs[i]
	}
	if viewerID == 0 || len(msgs) == 0 {
		return views, nil
	}

	ids := make([]uint, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
	}
	liked, err := s.messageService.LikedMessageIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	likedSet := make(map[uint]struct{}, len(liked))
	for _, id := range liked {
		likedSet[id] = struct{}{}
	}
	for i := range views {
		_, views[i].Liked = likedSet[views[i].ID]
	}
	return views, nil
}
