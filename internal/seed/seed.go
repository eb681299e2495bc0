// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"

	"warbler/internal/credentials"
	"warbler/internal/models"

	"gorm.io/gorm"
)

// DefaultPassword is the plaintext every generated user can log in with.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	MessagesPerUser int
	FollowsPerUser  int
	LikesPerUser    int
	Password        string
	ShouldClean     bool
	// Cost overrides the bcrypt cost; zero uses credentials.DefaultCost.
	Cost int
	// RandSeed makes generated data reproducible when non-zero.
	RandSeed int64
}

// Result reports how many rows a seeding run created.
type Result struct {
	Users    int
	Messages int
	Follows  int
	Likes    int
}

// Seed populates the database with generated users, messages, follows and likes.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	log.Printf("🌱 Starting database seeding with %d users...", opts.NumUsers)

	if opts.ShouldClean {
		if err := ClearAll(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f, err := NewFactory(db, credentials.NewHasher(opts.Cost), opts.Password, opts.RandSeed)
	if err != nil {
		return nil, err
	}

	users, err := f.Users(opts.NumUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d users created", len(users))

	messages, err := f.Messages(users, opts.MessagesPerUser)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages: %w", err)
	}
	log.Printf("✓ %d messages created", len(messages))

	follows, err := f.Follows(users, opts.FollowsPerUser)
	if err != nil {
		return nil, fmt.Errorf("failed to create follows: %w", err)
	}
	log.Printf("✓ %d follows created", follows)

	likes, err := f.Likes(users, messages, opts.LikesPerUser)
	if err != nil {
		return nil, fmt.Errorf("failed to create likes: %w", err)
	}
	log.Printf("✓ %d likes created", likes)

	log.Println("🎉 Database seeding completed successfully!")
	return &Result{Users: len(users), Messages: len(messages), Follows: follows, Likes: likes}, nil
}

// ClearAll removes every row from the domain tables, children first.
func ClearAll(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Like{}, &models.Follow{}, &models.Message{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
