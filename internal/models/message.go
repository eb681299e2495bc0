package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the longest message text accepted, in characters.
const MaxMessageLength = 140

// Message is a short post ("warble") written by a user.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:varchar(140);not null" json:"text"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`

	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
}

// ValidateMessageText returns ErrInvalidText unless text is non-blank and at
// most MaxMessageLength characters.
func ValidateMessageText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrInvalidText
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return ErrInvalidText
	}
	return nil
}
