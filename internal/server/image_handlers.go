package server

import (
	"errors"
	"net/url"
	"strings"

	"bienestar/internal/models"
	"bienestar/internal/service"
	"bienestar/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// UploadImage stores a blog image outside any editor session, for inline
// content images. Same validation as the editor path.
func (s *Server) UploadImage(c *fiber.Ctx) error {
	header, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("An image file is required"))
	}

	maxBytes := int64(s.config.UploadMaxSizeMB) << 20
	if err := service.ValidateImageUpload(header.Header.Get("Content-Type"), header.Size, maxBytes); err != nil {
		return fail(c, err)
	}

	file, err := header.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read the uploaded file"))
	}
	defer file.Close()

	key := storage.ObjectKey("blog-images", header.Filename)
	url, err := s.blobs.Upload(c.UserContext(), key, file, header.Header.Get("Content-Type"))
	if err != nil {
		return fail(c, models.NewPersistenceError(err))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}

// DeleteImage removes an uploaded blob by its path or public URL. Replaced
// featured images are never cleaned up automatically; this is the manual
// counterpart.
func (s *Server) DeleteImage(c *fiber.Ctx) error {
	raw := c.Query("path")
	if raw == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("path query parameter is required"))
	}

	key := blobKeyFromPath(raw)
	if key == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid image path"))
	}

	if err := s.blobs.Delete(c.UserContext(), key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("image", key))
		}
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// blobKeyFromPath accepts either a bare object key or a full public URL and
// returns the object key, rejecting anything that escapes the upload
// folders.
func blobKeyFromPath(raw string) string {
	key := raw
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		key = strings.TrimPrefix(u.Path, "/")
		key = strings.TrimPrefix(key, "media/")
	}
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") || !strings.Contains(key, "/") {
		return ""
	}
	return key
}
