package notifications

import (
	"context"
	"log/slog"

	"warbler/internal/middleware"
)

// Publisher routes events to users. With Redis configured events fan out
// through pub/sub, reaching every instance including this one via
// Hub.StartWiring; without it they go straight to the local hub.
type Publisher struct {
	notifier *Notifier
	hub      *Hub
}

// NewPublisher builds a Publisher. Either argument may be nil.
func NewPublisher(notifier *Notifier, hub *Hub) *Publisher {
	return &Publisher{notifier: notifier, hub: hub}
}

// Publish delivers evt to every socket userID has open.
func (p *Publisher) Publish(ctx context.Context, userID uint, evt Event) error {
	if p == nil {
		return nil
	}
	if p.notifier.Enabled() {
		return p.notifier.PublishEvent(ctx, userID, evt)
	}
	if p.hub == nil {
		return nil
	}
	payload, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	p.hub.Broadcast(userID, payload)
	middleware.Logger.DebugContext(ctx, "delivered event locally",
		slog.String("type", evt.Type), slog.Uint64("user_id", uint64(userID)))
	return nil
}
