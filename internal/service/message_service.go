package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// MessageService posts, removes and likes messages and builds feeds.
type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	events      EventPublisher
	now         func() time.Time
}

// NewMessageService returns a new MessageService. events may be nil.
func NewMessageService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	events EventPublisher,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		followRepo:  followRepo,
		events:      events,
		now:         time.Now,
	}
}

// Post stores a message by authorID. A nil timestamp means now. Followers
// of the author are notified.
func (s *MessageService) Post(ctx context.Context, authorID uint, text string, timestamp *time.Time) (msg *models.Message, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService.Post", attribute.Int64("user.id", int64(authorID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := models.ValidateMessageText(text); err != nil {
		return nil, err
	}
	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	ts := s.now().UTC()
	if timestamp != nil {
		ts = timestamp.UTC()
	}
	msg = &models.Message{Text: text, Timestamp: ts, UserID: authorID}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	msg.User = *author
	observability.MessagesTotal.WithLabelValues("posted").Inc()

	followers, err := s.followRepo.FollowerIDs(ctx, authorID)
	if err != nil {
		// The message is stored; only the fan-out is lost.
		middleware.Logger.WarnContext(ctx, "failed to load followers for fan-out",
			slog.Uint64("user_id", uint64(authorID)),
			slog.String("error", err.Error()),
		)
	}
	publishEvent(ctx, s.events, notifications.Event{
		Type: notifications.EventMessage,
		Payload: MessageEvent{
			MessageID: msg.ID,
			UserID:    authorID,
			Username:  msg.User.Username,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		},
	}, followers...)
	return msg, nil
}

// Get returns the message with its author.
func (s *MessageService) Get(ctx context.Context, id uint) (*models.Message, error) {
	return s.messageRepo.GetByID(ctx, id)
}

// Delete removes a message and its likes. Only the author may delete it.
func (s *MessageService) Delete(ctx context.Context, messageID, requesterID uint) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.UserID != requesterID {
		return models.ErrUnauthorized
	}
	if err := s.messageRepo.Delete(ctx, messageID); err != nil {
		return err
	}
	observability.MessagesTotal.WithLabelValues("deleted").Inc()
	return nil
}

// Like records userID liking messageID and notifies the author. Authors
// cannot like their own messages.
func (s *MessageService) Like(ctx context.Context, userID, messageID uint) error {
	msg, err := s.likeTarget(ctx, userID, messageID)
	if err != nil {
		return err
	}
	return s.like(ctx, userID, msg)
}

// Unlike removes the like; ErrNotLiked when there was none.
func (s *MessageService) Unlike(ctx context.Context, userID, messageID uint) error {
	if _, err := s.messageRepo.GetByID(ctx, messageID); err != nil {
		return err
	}
	if err := s.messageRepo.Unlike(ctx, userID, messageID); err != nil {
		return err
	}
	observability.LikesTotal.WithLabelValues("unlike").Inc()
	return nil
}

// ToggleLike likes the message when userID does not like it yet and unlikes
// it otherwise. It reports whether the message is liked afterwards.
func (s *MessageService) ToggleLike(ctx context.Context, userID, messageID uint) (bool, error) {
	msg, err := s.likeTarget(ctx, userID, messageID)
	if err != nil {
		return false, err
	}

	liked, err := s.messageRepo.IsLiked(ctx, userID, messageID)
	if err != nil {
		return false, err
	}

	if liked {
		err = s.messageRepo.Unlike(ctx, userID, messageID)
		if err == nil {
			observability.LikesTotal.WithLabelValues("unlike").Inc()
		}
		// A concurrent toggle already removed it.
		if err == nil || errors.Is(err, models.ErrNotLiked) {
			return false, nil
		}
		return false, err
	}

	err = s.like(ctx, userID, msg)
	if err == nil || errors.Is(err, models.ErrAlreadyLiked) {
		return true, nil
	}
	return false, err
}

func (s *MessageService) likeTarget(ctx context.Context, userID, messageID uint) (*models.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.UserID == userID {
		return nil, models.ErrSelfLikeNotAllowed
	}
	return msg, nil
}

func (s *MessageService) like(ctx context.Context, userID uint, msg *models.Message) error {
	liker, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.messageRepo.Like(ctx, userID, msg.ID); err != nil {
		return err
	}
	observability.LikesTotal.WithLabelValues("like").Inc()

	publishEvent(ctx, s.events, notifications.Event{
		Type:    notifications.EventLike,
		Payload: LikeEvent{MessageID: msg.ID, UserID: userID, Username: liker.Username},
	}, msg.UserID)
	return nil
}

// LikedMessages returns the messages userID likes, newest first.
func (s *MessageService) LikedMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.messageRepo.LikedMessages(ctx, userID)
}

// LikedMessageIDs returns the subset of messageIDs that userID likes.
func (s *MessageService) LikedMessageIDs(ctx context.Context, userID uint, messageIDs []uint) ([]uint, error) {
	if len(messageIDs) == 0 {
		return []uint{}, nil
	}
	return s.messageRepo.LikedMessageIDs(ctx, userID, messageIDs)
}

// Likers returns the users who like messageID.
func (s *MessageService) Likers(ctx context.Context, messageID uint) ([]models.User, error) {
	if _, err := s.messageRepo.GetByID(ctx, messageID); err != nil {
		return nil, err
	}
	return s.messageRepo.Likers(ctx, messageID)
}

// UserMessages returns userID's messages, newest first.
func (s *MessageService) UserMessages(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByUser(ctx, userID, limit)
}

// Timeline returns the newest messages written by userID or anyone they
// follow, at most repository.TimelineLimit.
func (s *MessageService) Timeline(ctx context.Context, userID uint) (msgs []models.Message, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService.Timeline", attribute.Int64("user.id", int64(userID)))
	defer func() { observability.EndSpan(span, err) }()

	return s.messageRepo.Timeline(ctx, userID, repository.TimelineLimit)
}
