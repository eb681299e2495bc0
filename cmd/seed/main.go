// Command main runs the database seeder for Warbler.
package main

import (
	"flag"
	"log"

	"warbler/internal/config"
	"warbler/internal/credentials"
	"warbler/internal/database"
	"warbler/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	messages := flag.Int("messages", 5, "Messages per user")
	follows := flag.Int("follows", 8, "Follows per user")
	likes := flag.Int("likes", 10, "Likes per user")
	password := flag.String("password", seed.DefaultPassword, "Password for every generated user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	preset := flag.String("preset", "", "Apply a YAML preset file instead of generating data")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = random)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *preset != "" {
		log.Printf("Applying preset: %s (ignoring generator flags)\n", *preset)
		p, err := seed.LoadPreset(*preset)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		if *shouldClean {
			if err := seed.ClearAll(db); err != nil {
				log.Fatalf("❌ Cleanup failed: %v", err)
			}
		}
		res, err := seed.ApplyPreset(db, credentials.NewHasher(cfg.BcryptCost), p)
		if err != nil {
			log.Fatalf("❌ Preset seeding failed: %v", err)
		}
		log.Printf("✨ Preset applied: %d users, %d messages, %d follows, %d likes", res.Users, res.Messages, res.Follows, res.Likes)
		return
	}

	log.Printf("Target: %d users, %d messages/user, clean=%v\n", *numUsers, *messages, *shouldClean)
	if _, err := seed.Seed(db, seed.Options{
		NumUsers:        *numUsers,
		MessagesPerUser: *messages,
		FollowsPerUser:  *follows,
		LikesPerUser:    *likes,
		Password:        *password,
		ShouldClean:     *shouldClean,
		Cost:            cfg.BcryptCost,
		RandSeed:        *randSeed,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", *password)
}
