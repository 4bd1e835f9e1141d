// Command main runs the database seeder for Bienestar.
package main

import (
	"context"
	"flag"
	"log"

	"bienestar/internal/config"
	"bienestar/internal/database"
	"bienestar/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numPosts := flag.Int("posts", 40, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	operatorEmail := flag.String("operator", "", "Operator email to create")
	operatorPassword := flag.String("password", "", "Operator password")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if *operatorEmail != "" {
		if *operatorPassword == "" {
			log.Fatal("-password is required when -operator is set")
		}
		if err := s.SeedOperator(ctx, *operatorEmail, *operatorPassword, cfg.JWTSecret); err != nil {
			log.Fatalf("Operator seeding failed: %v", err)
		}
	}

	if err := s.SeedPosts(ctx, *numPosts); err != nil {
		log.Fatalf("Post seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
