package server

import (
	"sync"

	"bienestar/internal/middleware"
	"bienestar/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPublishedPosts returns all publicly visible posts, newest first.
func (s *Server) GetPublishedPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPublished(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"posts": presentPosts(posts)})
}

// GetFeaturedPost returns the hero post, or 204 when nothing is published.
func (s *Server) GetFeaturedPost(c *fiber.Ctx) error {
	post, err := s.postService.FeaturedPost(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	if post == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(fiber.Map{"post": presentPost(post)})
}

// GetRecentPosts returns the latest published posts for the sidebar.
func (s *Server) GetRecentPosts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	posts, err := s.postService.ListRecent(c.UserContext(), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"posts": presentPosts(posts)})
}

// GetMandatoryPosts returns the published posts flagged as mandatory reading.
func (s *Server) GetMandatoryPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListMandatory(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"posts": presentPosts(posts)})
}

// GetPost returns one post by id.
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"post": presentPost(post)})
}

// GetCategories returns the distinct tags across published posts.
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.postService.ListCategories(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	if categories == nil {
		categories = []string{}
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// GetPostsByCategory returns the published posts carrying a tag.
func (s *Server) GetPostsByCategory(c *fiber.Ctx) error {
	tag := c.Params("tag")
	if tag == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Category is required"))
	}
	posts, err := s.postService.ListByCategory(c.UserContext(), tag)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"posts": presentPosts(posts)})
}

// RecordView bumps the view counter of a post.
func (s *Server) RecordView(c *fiber.Ctx) error {
	if err := s.postService.IncrementView(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RecordLike bumps the like counter of a post.
func (s *Server) RecordLike(c *fiber.Ctx) error {
	if err := s.postService.IncrementLike(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSidebar assembles the blog sidebar in one response: recent posts,
// mandatory reading and the category list, fetched concurrently. A failed
// section comes back empty instead of failing the whole sidebar.
func (s *Server) GetSidebar(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var (
		wg         sync.WaitGroup
		recent     []*models.Post
		mandatory  []*models.Post
		categories []string
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		var err error
		if recent, err = s.postService.ListRecent(ctx, 0); err != nil {
			middleware.Logger.WarnContext(ctx, "sidebar recent posts failed", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if mandatory, err = s.postService.ListMandatory(ctx); err != nil {
			middleware.Logger.WarnContext(ctx, "sidebar mandatory posts failed", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if categories, err = s.postService.ListCategories(ctx); err != nil {
			middleware.Logger.WarnContext(ctx, "sidebar categories failed", "error", err)
		}
	}()
	wg.Wait()

	if categories == nil {
		categories = []string{}
	}
	return c.JSON(fiber.Map{
		"recent":     presentPosts(recent),
		"mandatory":  presentPosts(mandatory),
		"categories": categories,
	})
}
