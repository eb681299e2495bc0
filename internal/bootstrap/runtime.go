// Package bootstrap connects the runtime dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/credentials"
	"warbler/internal/database"
	"warbler/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// redisDialTimeout bounds the startup ping.
const redisDialTimeout = 5 * time.Second

// Options control runtime initialization behavior.
type Options struct {
	// SeedPreset is a YAML fixture applied after the schema is in place.
	SeedPreset string
}

// InitRuntime connects to the database and Redis and optionally loads a seed preset.
// Both connections are required; on failure nothing is left open.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	rdb, err := cache.NewClient(dialCtx, cfg.RedisURL)
	if err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if opts.SeedPreset != "" {
		if err := applyPreset(db, cfg, opts.SeedPreset); err != nil {
			closeDB(db)
			_ = rdb.Close()
			return nil, nil, err
		}
	}

	return db, rdb, nil
}

func applyPreset(db *gorm.DB, cfg *config.Config, path string) error {
	preset, err := seed.LoadPreset(path)
	if err != nil {
		return err
	}
	res, err := seed.ApplyPreset(db, credentials.NewHasher(cfg.BcryptCost), preset)
	if err != nil {
		return fmt.Errorf("failed to apply seed preset %s: %w", path, err)
	}
	log.Printf("✓ preset %s: %d users, %d messages, %d follows, %d likes", path, res.Users, res.Messages, res.Follows, res.Likes)
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
