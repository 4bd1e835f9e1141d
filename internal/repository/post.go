// Package repository is the data gateway: thin wrappers over the document
// store with no business logic beyond query shaping. The only server-side
// predicate used is equality on is_published; tag matching and all result
// ordering are performed by the caller so the store never needs a composite
// index.
package repository

import (
	"context"
	"errors"
	"time"

	"bienestar/internal/cache"
	"bienestar/internal/models"
	"bienestar/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostRepository defines the gateway operations over the post collection.
type PostRepository interface {
	Insert(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
	FindPublished(ctx context.Context) ([]*models.Post, error)
	FindAll(ctx context.Context) ([]*models.Post, error)
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
	IncrementViewCount(ctx context.Context, id string) error
	IncrementLikeCount(ctx context.Context, id string) error
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{
		db:  db,
		log: observability.NewRepoLogger("posts"),
	}
}

// Insert stores a new post document. The document id is assigned here and
// the server timestamps and counters are initialized; whatever the caller
// set on those fields is overwritten, matching store-side defaulting.
func (r *postRepository) Insert(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()

	now := time.Now().UTC()
	post.ID = uuid.NewString()
	post.PublishDate = now
	post.LastModified = now
	post.ViewCount = 0
	post.LikeCount = 0

	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "insert")
		return models.NewPersistenceError(err)
	}
	r.log.LogOp(ctx, "insert", map[string]interface{}{"id": post.ID})
	cache.Invalidate(ctx, cache.PublishedListKey)
	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery("find", "posts")()

	var post models.Post
	err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		r.log.LogError(ctx, err, "find")
		return nil, models.NewPersistenceError(err)
	}
	return &post, nil
}

func (r *postRepository) FindPublished(ctx context.Context) ([]*models.Post, error) {
	defer observability.TrackQuery("list", "posts")()

	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("is_published = ?", true).
		Find(&posts).Error; err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, models.NewPersistenceError(err)
	}
	return posts, nil
}

func (r *postRepository) FindAll(ctx context.Context) ([]*models.Post, error) {
	defer observability.TrackQuery("list_all", "posts")()

	var posts []*models.Post
	if err := r.db.WithContext(ctx).Find(&posts).Error; err != nil {
		r.log.LogError(ctx, err, "list_all")
		return nil, models.NewPersistenceError(err)
	}
	return posts, nil
}

// UpdateFields merges the given columns into the existing document and
// refreshes last_modified. Fields not present in the map are untouched. A
// missing id surfaces as a persistence error: the store does not
// distinguish "not found" on partial updates.
func (r *postRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	defer observability.TrackQuery("update", "posts")()

	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["last_modified"] = time.Now().UTC()

	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update")
		return models.NewPersistenceError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewPersistenceError(errors.New("no document updated for id " + id))
	}
	r.log.LogOp(ctx, "update", map[string]interface{}{"id": id})
	cache.InvalidatePost(ctx, id)
	return nil
}

// Delete removes the document permanently. There is no tombstone.
func (r *postRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", "posts")()

	if err := r.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id).Error; err != nil {
		r.log.LogError(ctx, err, "delete")
		return models.NewPersistenceError(err)
	}
	r.log.LogOp(ctx, "delete", map[string]interface{}{"id": id})
	cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) IncrementViewCount(ctx context.Context, id string) error {
	return r.increment(ctx, id, "view_count")
}

func (r *postRepository) IncrementLikeCount(ctx context.Context, id string) error {
	return r.increment(ctx, id, "like_count")
}

// increment is a single-statement atomic add at the store; concurrent
// increments race freely but never lose updates.
func (r *postRepository) increment(ctx context.Context, id, column string) error {
	defer observability.TrackQuery("increment", "posts")()

	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "increment")
		return models.NewPersistenceError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewPersistenceError(errors.New("no document updated for id " + id))
	}
	cache.InvalidatePost(ctx, id)
	return nil
}
