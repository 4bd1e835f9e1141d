package server

import (
	"strings"
	"time"

	"bienestar/internal/models"
	"bienestar/internal/service"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies operator credentials and returns a signed token. The
// failure response is the same for unknown emails and wrong passwords.
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	principal, token, err := s.sessions.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"token": token,
		"user":  principal,
	})
}

// Logout clears the server-side session state.
func (s *Server) Logout(c *fiber.Ctx) error {
	s.sessions.SignOut()
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminListPosts returns every post, drafts included, most recently
// modified first.
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListAllForAdmin(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"posts": presentPosts(posts)})
}

// AdminGetPost returns one post by id, regardless of publication state.
func (s *Server) AdminGetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"post": presentPost(post)})
}

type createPostRequest struct {
	Title              string   `json:"title"`
	Excerpt            string   `json:"excerpt"`
	Content            string   `json:"content"`
	Category           string   `json:"category"`
	Tags               []string `json:"tags"`
	FeaturedImage      string   `json:"featuredImage"`
	IsPublished        bool     `json:"isPublished"`
	IsMandatoryReading bool     `json:"isMandatoryReading"`
}

// AdminCreatePost stores a new post directly, bypassing the editor flow.
// The publish date is always the server time at creation.
func (s *Server) AdminCreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Title) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Title is required"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Content is required"))
	}
	if strings.TrimSpace(req.Category) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Category is required"))
	}
	excerpt := strings.TrimSpace(req.Excerpt)
	if excerpt == "" {
		excerpt = service.SynthesizeExcerpt(req.Content)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		Title:              req.Title,
		Excerpt:            excerpt,
		Content:            req.Content,
		Category:           req.Category,
		Tags:               req.Tags,
		FeaturedImage:      req.FeaturedImage,
		IsPublished:        req.IsPublished,
		IsMandatoryReading: req.IsMandatoryReading,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": presentPost(post)})
}

type updatePostRequest struct {
	Title              *string    `json:"title"`
	Excerpt            *string    `json:"excerpt"`
	Content            *string    `json:"content"`
	Category           *string    `json:"category"`
	Tags               *[]string  `json:"tags"`
	FeaturedImage      *string    `json:"featuredImage"`
	IsPublished        *bool      `json:"isPublished"`
	IsMandatoryReading *bool      `json:"isMandatoryReading"`
	PublishDate        *time.Time `json:"publishDate"`
}

// AdminUpdatePost merges the provided fields into the stored post. A
// publish date in the body is stored verbatim, which is how posts get
// scheduled or backdated.
func (s *Server) AdminUpdatePost(c *fiber.Ctx) error {
	var req updatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	id := c.Params("id")
	err := s.postService.UpdatePost(c.UserContext(), id, service.UpdatePostInput{
		Title:              req.Title,
		Excerpt:            req.Excerpt,
		Content:            req.Content,
		Category:           req.Category,
		Tags:               req.Tags,
		FeaturedImage:      req.FeaturedImage,
		IsPublished:        req.IsPublished,
		IsMandatoryReading: req.IsMandatoryReading,
		PublishDate:        req.PublishDate,
	})
	if err != nil {
		return fail(c, err)
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"post": presentPost(post)})
}

// AdminDeletePost removes a post permanently.
func (s *Server) AdminDeletePost(c *fiber.Ctx) error {
	if err := s.postService.DeletePost(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
