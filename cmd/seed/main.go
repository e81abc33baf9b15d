// Command seed fills the configured database with demo users and posts.
package main

import (
	"context"
	"flag"
	"log"

	"damara/internal/config"
	"damara/internal/database"
	"damara/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	postsPerUser := flag.Int("posts", 3, "Posts per newly created user")
	randSeed := flag.Int64("rand-seed", 0, "Seed for generated content (0 = random)")
	flag.Parse()

	log.Printf("Target: %d users, %d posts each", *numUsers, *postsPerUser)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		Users:        *numUsers,
		PostsPerUser: *postsPerUser,
		RandSeed:     *randSeed,
	})
	res, err := s.Seed(context.Background())
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users (%d already existed), %d posts, %d participations",
		res.UsersCreated, res.UsersExisting, res.PostsCreated, res.Participations)
	log.Printf("All demo users have the password: %s", seed.DemoPassword)
}
