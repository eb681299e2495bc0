package repository

import (
	"context"
	"errors"

	"warbler/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// TimelineLimit is the number of messages on a home timeline.
	TimelineLimit = 100

	defaultUserMessagesLimit = 100
	maxUserMessagesLimit     = 500
)

// MessageRepository stores messages and the likes attached to them.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	Delete(ctx context.Context, id uint) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.Message, error)
	Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)

	Like(ctx context.Context, userID, messageID uint) error
	Unlike(ctx context.Context, userID, messageID uint) error
	IsLiked(ctx context.Context, userID, messageID uint) (bool, error)
	LikedMessageIDs(ctx context.Context, userID uint, messageIDs []uint) ([]uint, error)
	LikedMessages(ctx context.Context, userID uint) ([]models.Message, error)
	Likers(ctx context.Context, messageID uint) ([]models.User, error)
	CountLikesByUser(ctx context.Context, userID uint) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// withDetails selects the message columns plus its like count and preloads the author.
func (r *messageRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Select("messages.*, (SELECT COUNT(*) FROM likes WHERE likes.message_id = messages.id) AS likes_count").
		Preload("User")
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error; err != nil {
		if isForeignKeyError(err) {
			return models.NewNotFoundError("User", msg.UserID)
		}
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).First(&msg.User, msg.UserID).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.withDetails(r.db.WithContext(ctx)).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &msg, nil
}

// Delete removes the message and every like on it in one transaction.
func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Message{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Message", id)
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *messageRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	if err := r.withDetails(r.db.WithContext(ctx)).
		Where("messages.user_id = ?", userID).
		Order("messages.timestamp DESC").
		Limit(clampLimit(limit, defaultUserMessagesLimit, maxUserMessagesLimit)).
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// Timeline returns the newest messages written by userID or anyone userID follows.
func (r *messageRepository) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	if err := r.withDetails(r.db.WithContext(ctx)).
		Where("messages.user_id = ? OR messages.user_id IN (SELECT followee_id FROM follows WHERE follower_id = ?)", userID, userID).
		Order("messages.timestamp DESC").
		Order("messages.id DESC").
		Limit(clampLimit(limit, TimelineLimit, TimelineLimit)).
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

func (r *messageRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// Like records the pair once. The existence check and insert share a
// transaction and the composite key rejects a concurrent duplicate.
func (r *messageRepository) Like(ctx context.Context, userID, messageID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Like{}).
			Where("user_id = ? AND message_id = ?", userID, messageID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return models.ErrAlreadyLiked
		}
		return tx.Create(&models.Like{UserID: userID, MessageID: messageID}).Error
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrAlreadyLiked), isUniqueConstraintError(err):
		return models.ErrAlreadyLiked
	case isForeignKeyError(err):
		return models.NewNotFoundError("Message", messageID)
	default:
		return models.NewInternalError(err)
	}
}

func (r *messageRepository) Unlike(ctx context.Context, userID, messageID uint) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&models.Like{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrNotLiked
	}
	return nil
}

func (r *messageRepository) IsLiked(ctx context.Context, userID, messageID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *messageRepository) LikedMessageIDs(ctx context.Context, userID uint, messageIDs []uint) ([]uint, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var liked []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND message_id IN ?", userID, messageIDs).
		Pluck("message_id", &liked).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return liked, nil
}

// LikedMessages returns the messages userID likes, newest first.
func (r *messageRepository) LikedMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	var msgs []models.Message
	if err := r.withDetails(r.db.WithContext(ctx)).
		Where("messages.id IN (SELECT message_id FROM likes WHERE user_id = ?)", userID).
		Order("messages.timestamp DESC").
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// Likers returns the users who like messageID, ordered by username.
func (r *messageRepository) Likers(ctx context.Context, messageID uint) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Joins("JOIN likes ON likes.user_id = users.id").
		Where("likes.message_id = ?", messageID).
		Order("users.username ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *messageRepository) CountLikesByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
