// Package service implements the domain operations over the data gateway:
// the post read/mutation surface used by the public blog and the admin
// dashboard, and the authoring (editor) flow.
package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"bienestar/internal/cache"
	"bienestar/internal/models"
	"bienestar/internal/observability"
	"bienestar/internal/repository"
)

// DefaultRecentLimit is the sidebar's "recent posts" count.
const DefaultRecentLimit = 5

// PostService exposes domain-shaped operations over the post gateway.
// Sorting and tag filtering happen here, in application memory: the store is
// only ever asked for the equality predicate on is_published, so it never
// needs a composite index. Acceptable because the corpus is a blog, not a
// firehose.
type PostService struct {
	repo repository.PostRepository
}

// NewPostService creates a new post service.
func NewPostService(repo repository.PostRepository) *PostService {
	return &PostService{repo: repo}
}

// CreatePostInput carries the fields of a new post. Timestamps and counters
// are assigned by the gateway on insert.
type CreatePostInput struct {
	Title              string
	Excerpt            string
	Content            string
	Category           string
	Tags               []string
	FeaturedImage      string
	IsPublished        bool
	IsMandatoryReading bool
}

// UpdatePostInput is a partial update: nil fields are left untouched.
type UpdatePostInput struct {
	Title              *string
	Excerpt            *string
	Content            *string
	Category           *string
	Tags               *[]string
	FeaturedImage      *string
	IsPublished        *bool
	IsMandatoryReading *bool
	PublishDate        *time.Time
}

// CreatePost stores a new post and returns it with its assigned id.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	post := &models.Post{
		Title:              in.Title,
		Excerpt:            in.Excerpt,
		Content:            in.Content,
		Category:           in.Category,
		Tags:               in.Tags,
		FeaturedImage:      in.FeaturedImage,
		IsPublished:        in.IsPublished,
		IsMandatoryReading: in.IsMandatoryReading,
	}
	if err := s.repo.Insert(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost merges the set fields into the stored document. The gateway
// refreshes last_modified; everything else not present here is untouched.
func (s *PostService) UpdatePost(ctx context.Context, id string, in UpdatePostInput) error {
	fields := map[string]any{}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Excerpt != nil {
		fields["excerpt"] = *in.Excerpt
	}
	if in.Content != nil {
		fields["content"] = *in.Content
	}
	if in.Category != nil {
		fields["category"] = *in.Category
	}
	if in.Tags != nil {
		// The tags column is JSON-serialized; map-style updates bypass
		// the model serializer, so encode here.
		b, err := json.Marshal(*in.Tags)
		if err != nil {
			return models.NewInternalError(err)
		}
		fields["tags"] = string(b)
	}
	if in.FeaturedImage != nil {
		fields["featured_image"] = *in.FeaturedImage
	}
	if in.IsPublished != nil {
		fields["is_published"] = *in.IsPublished
	}
	if in.IsMandatoryReading != nil {
		fields["is_mandatory_reading"] = *in.IsMandatoryReading
	}
	if in.PublishDate != nil {
		fields["publish_date"] = *in.PublishDate
	}
	return s.repo.UpdateFields(ctx, id, fields)
}

// DeletePost removes the post permanently.
func (s *PostService) DeletePost(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// GetPost fetches a single post by id.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return s.repo.FindByID(ctx, id)
}

// ListPublished returns all publicly visible posts, newest publish date
// first. A published post with a future publish date is NOT excluded here;
// the scheduled state is a presentation-layer distinction only.
func (s *PostService) ListPublished(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := cache.Aside(ctx, cache.PublishedListKey, &posts, cache.ListTTL, func() error {
		var fetchErr error
		posts, fetchErr = s.repo.FindPublished(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	sortByPublishDateDesc(posts)
	return posts, nil
}

// ListRecent returns the n most recently published posts.
func (s *PostService) ListRecent(ctx context.Context, n int) ([]*models.Post, error) {
	if n <= 0 {
		n = DefaultRecentLimit
	}
	posts, err := s.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if len(posts) > n {
		posts = posts[:n]
	}
	return posts, nil
}

// ListMandatory returns the published posts flagged as mandatory reading.
func (s *PostService) ListMandatory(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	out := posts[:0:0]
	for _, p := range posts {
		if p.IsMandatoryReading {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListByCategory returns the published posts carrying the given tag. The
// "array contains" match runs here rather than in the store.
func (s *PostService) ListByCategory(ctx context.Context, tag string) ([]*models.Post, error) {
	posts, err := s.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	out := posts[:0:0]
	for _, p := range posts {
		if p.HasTag(tag) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListAllForAdmin returns every post regardless of publication state,
// most recently modified first.
func (s *PostService) ListAllForAdmin(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].LastModified.After(posts[j].LastModified)
	})
	return posts, nil
}

// ListCategories returns the distinct tags across published posts,
// lexically ascending.
func (s *PostService) ListCategories(ctx context.Context) ([]string, error) {
	posts, err := s.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var categories []string
	for _, p := range posts {
		for _, tag := range p.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			categories = append(categories, tag)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

// FeaturedPost returns the most recently published post for the hero
// section, or (nil, nil) when nothing is published yet.
func (s *PostService) FeaturedPost(ctx context.Context) (*models.Post, error) {
	posts, err := s.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return posts[0], nil
}

// IncrementView bumps the view counter by one. Fire-and-forget: there is no
// dedup key, a repeat visitor counts again.
func (s *PostService) IncrementView(ctx context.Context, id string) error {
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		observability.EngagementIncrements.WithLabelValues("view", "error").Inc()
		return err
	}
	observability.EngagementIncrements.WithLabelValues("view", "ok").Inc()
	return nil
}

// IncrementLike bumps the like counter by one, same semantics as views.
func (s *PostService) IncrementLike(ctx context.Context, id string) error {
	if err := s.repo.IncrementLikeCount(ctx, id); err != nil {
		observability.EngagementIncrements.WithLabelValues("like", "error").Inc()
		return err
	}
	observability.EngagementIncrements.WithLabelValues("like", "ok").Inc()
	return nil
}

// sortByPublishDateDesc orders newest first. The sort is stable so posts
// with equal publish dates keep the store's natural document order.
func sortByPublishDateDesc(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishDate.After(posts[j].PublishDate)
	})
}
