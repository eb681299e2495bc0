package service

import (
	"context"
	"log/slog"
	"strings"

	"warbler/internal/credentials"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// AuthService registers users and checks their credentials.
type AuthService struct {
	userRepo repository.UserRepository
	hasher   *credentials.Hasher
}

// SignupInput is the data a new account is created from.
type SignupInput struct {
	Username       string
	Email          string
	Password       string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
}

// NewAuthService returns a new AuthService.
func NewAuthService(userRepo repository.UserRepository, hasher *credentials.Hasher) *AuthService {
	return &AuthService{userRepo: userRepo, hasher: hasher}
}

// Signup validates in, hashes the password and persists the user. Username
// and email must both be unused.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService.Signup")
	defer func() { observability.EndSpan(span, err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.HeaderImageURL = strings.TrimSpace(in.HeaderImageURL)

	if err := validateSignup(in); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user = &models.User{
		Username:       in.Username,
		Email:          in.Email,
		Password:       hashed,
		ImageURL:       in.ImageURL,
		HeaderImageURL: in.HeaderImageURL,
		Bio:            in.Bio,
		Location:       in.Location,
	}
	user.ApplyProfileDefaults()

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.SignupsTotal.Inc()
	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))
	middleware.Logger.InfoContext(ctx, "User signed up",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username),
	)
	return user, nil
}

func validateSignup(in SignupInput) error {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImageURL("image_url", in.ImageURL); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImageURL("header_image_url", in.HeaderImageURL); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateProfileText(in.Bio, in.Location); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// Authenticate returns the user whose username and password match. An
// unknown username and a wrong password are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService.Authenticate")
	defer func() { observability.EndSpan(span, err) }()

	user, err = s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		observability.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if user == nil || !s.hasher.Verify(user.Password, password) {
		observability.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, models.ErrAuthenticationFailed
	}

	if s.hasher.NeedsRehash(user.Password) {
		s.rehash(ctx, user, password)
	}

	observability.LoginsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// rehash upgrades a stored hash to the configured cost. The login has
// already succeeded, so a failure here is logged and otherwise ignored.
func (s *AuthService) rehash(ctx context.Context, user *models.User, password string) {
	hashed, err := s.hasher.Hash(password)
	if err == nil {
		previous := user.Password
		user.Password = hashed
		if err = s.userRepo.Update(ctx, user); err != nil {
			user.Password = previous
		}
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to upgrade password hash",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	}
}
