package server

import (
	"errors"
	"time"

	"bienestar/internal/models"

	"github.com/gofiber/fiber/v2"
)

// postView is a post decorated with its derived status for API responses.
type postView struct {
	*models.Post
	Status models.PostStatus `json:"status"`
}

func presentPost(p *models.Post) postView {
	return postView{Post: p, Status: p.StatusAt(time.Now())}
}

func presentPosts(posts []*models.Post) []postView {
	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		out = append(out, presentPost(p))
	}
	return out
}

// fail maps an application error onto the matching HTTP status and writes
// the standard error envelope.
func fail(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	status := fiber.StatusInternalServerError
	switch appErr.Code {
	case "NOT_FOUND":
		status = fiber.StatusNotFound
	case "VALIDATION_ERROR":
		status = fiber.StatusBadRequest
	case "AUTH_ERROR", "UNAUTHORIZED":
		status = fiber.StatusUnauthorized
	}
	return models.RespondWithError(c, status, appErr)
}
