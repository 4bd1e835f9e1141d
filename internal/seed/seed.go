// Package seed populates the database with development fixtures.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bienestar/internal/models"
	"bienestar/internal/repository"
	"bienestar/internal/session"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

var categories = []string{
	"Mindfulness",
	"Nutrición",
	"Movimiento",
	"Sueño",
	"Gestión emocional",
}

var tagPool = []string{
	"mindfulness", "respiración", "nutrición", "hidratación",
	"movimiento", "estiramientos", "sueño", "rutinas",
	"estrés", "hábitos",
}

// Seeder populates the database with fake blog content.
type Seeder struct {
	db    *gorm.DB
	posts repository.PostRepository
}

// NewSeeder creates a seeder over the given database.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:    db,
		posts: repository.NewPostRepository(db),
	}
}

// ClearAll wipes posts and operator accounts.
func (s *Seeder) ClearAll() error {
	if err := s.db.Exec("DELETE FROM posts").Error; err != nil {
		return fmt.Errorf("failed to clear posts: %w", err)
	}
	if err := s.db.Exec("DELETE FROM users").Error; err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return nil
}

// SeedOperator creates one operator account, skipping it when the email is
// already registered.
func (s *Seeder) SeedOperator(ctx context.Context, email, password, jwtSecret string) error {
	mgr := session.NewManager(repository.NewUserRepository(s.db), jwtSecret)
	_, err := mgr.Register(ctx, email, password)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "VALIDATION_ERROR" {
			log.Printf("operator %s already exists, skipping", email)
			return nil
		}
		return err
	}
	log.Printf("created operator %s", email)
	return nil
}

// SeedPosts inserts n fake posts. Roughly a fifth stay drafts, one in ten
// is scheduled into the future, and a few are flagged mandatory.
func (s *Seeder) SeedPosts(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		content := gofakeit.Paragraph(3, 5, 12, "\n\n")
		post := &models.Post{
			Title:              gofakeit.Sentence(gofakeit.Number(4, 8)),
			Excerpt:            gofakeit.Sentence(12),
			Content:            content,
			Category:           categories[gofakeit.Number(0, len(categories)-1)],
			Tags:               pickTags(),
			IsPublished:        gofakeit.Number(0, 4) != 0,
			IsMandatoryReading: gofakeit.Number(0, 9) == 0,
		}
		if err := s.posts.Insert(ctx, post); err != nil {
			return fmt.Errorf("failed to insert post %d: %w", i, err)
		}

		// Spread publish dates over the past year; schedule a few ahead.
		offset := -time.Duration(gofakeit.Number(0, 365*24)) * time.Hour
		if gofakeit.Number(0, 9) == 0 {
			offset = time.Duration(gofakeit.Number(24, 14*24)) * time.Hour
		}
		err := s.db.WithContext(ctx).Model(&models.Post{}).
			Where("id = ?", post.ID).
			Update("publish_date", time.Now().Add(offset)).Error
		if err != nil {
			return fmt.Errorf("failed to backdate post %d: %w", i, err)
		}
	}
	log.Printf("seeded %d posts", n)
	return nil
}

func pickTags() []string {
	count := gofakeit.Number(1, 3)
	tags := make([]string, 0, count)
	for len(tags) < count {
		tag := tagPool[gofakeit.Number(0, len(tagPool)-1)]
		if !contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
