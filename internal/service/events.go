// Package service holds the application's business rules on top of the repositories.
package service

import (
	"context"
	"log/slog"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/notifications"
)

// EventPublisher delivers realtime events to a user's open connections.
type EventPublisher interface {
	Publish(ctx context.Context, userID uint, evt notifications.Event) error
}

// MessageEvent is the payload of a "message" event sent to followers.
type MessageEvent struct {
	MessageID uint      `json:"message_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// FollowEvent is the payload of a "follow" event sent to the followee.
type FollowEvent struct {
	FollowerID uint   `json:"follower_id"`
	Username   string `json:"username"`
}

// LikeEvent is the payload of a "like" event sent to the message author.
type LikeEvent struct {
	MessageID uint   `json:"message_id"`
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
}

// publishEvent sends evt to each recipient. Delivery is best effort: the
// write that triggered it has already committed, so failures are only logged.
func publishEvent(ctx context.Context, p EventPublisher, evt notifications.Event, recipients ...uint) {
	if p == nil {
		return
	}
	for _, userID := range recipients {
		if err := p.Publish(ctx, userID, evt); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish event",
				slog.String("type", evt.Type),
				slog.Uint64("recipient_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
		}
	}
}
