package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/observability"
	"warbler/internal/repository"
)

// FollowService maintains the directed follow graph between users.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	events     EventPublisher
}

// NewFollowService returns a new FollowService. events may be nil.
func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository, events EventPublisher) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		events:     events,
	}
}

// Follow makes followerID follow followeeID and tells the followee.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return models.ErrSelfFollowNotAllowed
	}
	follower, err := s.userRepo.GetByID(ctx, followerID)
	if err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}

	if err := s.followRepo.Follow(ctx, followerID, followeeID); err != nil {
		return err
	}
	observability.FollowsTotal.WithLabelValues("follow").Inc()

	publishEvent(ctx, s.events, notifications.Event{
		Type:    notifications.EventFollow,
		Payload: FollowEvent{FollowerID: followerID, Username: follower.Username},
	}, followeeID)
	return nil
}

// Unfollow removes the edge; ErrNotFollowing when there was none.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	if err := s.followRepo.Unfollow(ctx, followerID, followeeID); err != nil {
		return err
	}
	observability.FollowsTotal.WithLabelValues("unfollow").Inc()
	return nil
}

// IsFollowing reports whether followerID follows followeeID.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.followRepo.IsFollowing(ctx, followerID, followeeID)
}

// Followers returns a snapshot of the users following userID.
func (s *FollowService) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Followers(ctx, userID)
}

// Following returns a snapshot of the users userID follows.
func (s *FollowService) Following(ctx context.Context, userID uint) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Following(ctx, userID)
}

// FollowingIDs returns the ids userID follows, for marking follow buttons.
func (s *FollowService) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followRepo.FollowingIDs(ctx, userID)
}
