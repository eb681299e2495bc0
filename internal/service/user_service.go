package service

import (
	"context"
	"log/slog"
	"strings"

	"warbler/internal/credentials"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/validation"
)

// SearchLimit caps user search and listing results.
const SearchLimit = 100

// UserService reads and maintains user profiles.
type UserService struct {
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	messageRepo repository.MessageRepository
	hasher      *credentials.Hasher
}

// UserProfile is a user with the counters shown on their profile page.
type UserProfile struct {
	User  *models.User     `json:"user"`
	Stats models.UserStats `json:"stats"`
}

// UpdateProfileInput carries a profile edit. Nil fields are left unchanged;
// CurrentPassword must match the stored password.
type UpdateProfileInput struct {
	UserID          uint
	CurrentPassword string
	Username        *string
	Email           *string
	ImageURL        *string
	HeaderImageURL  *string
	Bio             *string
	Location        *string
}

// NewUserService returns a new UserService.
func NewUserService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	messageRepo repository.MessageRepository,
	hasher *credentials.Hasher,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		followRepo:  followRepo,
		messageRepo: messageRepo,
		hasher:      hasher,
	}
}

// GetUser returns the user or a not-found error.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Profile returns the user together with message, follow and like counts.
func (s *UserService) Profile(ctx context.Context, id uint) (*UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := &UserProfile{User: user}
	if profile.Stats.Messages, err = s.messageRepo.CountByUser(ctx, id); err != nil {
		return nil, err
	}
	if profile.Stats.Following, profile.Stats.Followers, err = s.followRepo.Counts(ctx, id); err != nil {
		return nil, err
	}
	if profile.Stats.Likes, err = s.messageRepo.CountLikesByUser(ctx, id); err != nil {
		return nil, err
	}
	return profile, nil
}

// Search returns users whose username contains query, ignoring case, ordered
// by username. A blank query lists everyone.
func (s *UserService) Search(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.userRepo.List(ctx, SearchLimit)
	}
	return s.userRepo.Search(ctx, query, SearchLimit)
}

// UpdateProfile applies in to the user's own profile once their current
// password checks out. Username and email stay unique across users.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	cached, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	// The cached copy carries no password hash; read the row itself.
	user, err := s.userRepo.GetByUsername(ctx, cached.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID != in.UserID {
		return nil, models.NewNotFoundError("User", in.UserID)
	}
	if !s.hasher.Verify(user.Password, in.CurrentPassword) {
		return nil, models.ErrAuthenticationFailed
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = username
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = email
	}
	if in.ImageURL != nil {
		user.ImageURL = strings.TrimSpace(*in.ImageURL)
		if err := validation.ValidateImageURL("image_url", user.ImageURL); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if in.HeaderImageURL != nil {
		user.HeaderImageURL = strings.TrimSpace(*in.HeaderImageURL)
		if err := validation.ValidateImageURL("header_image_url", user.HeaderImageURL); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Location != nil {
		user.Location = *in.Location
	}
	if err := validation.ValidateProfileText(user.Bio, user.Location); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	user.ApplyProfileDefaults()

	// Leave the stored hash untouched.
	user.Password = ""
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "Profile updated", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// DeleteAccount removes the user and everything they wrote, followed or liked.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "Account deleted", slog.Uint64("user_id", uint64(userID)))
	return nil
}
