package server

import (
	"errors"

	"bienestar/internal/models"
	"bienestar/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that a helper already committed the HTTP
// response. Handlers must return nil in that case so the error handler does
// not overwrite it.
var errResponseWritten = errors.New("response already written")

type openEditorRequest struct {
	// PostID selects the post to edit. Empty opens a blank new-post
	// session.
	PostID string `json:"postId"`
}

// OpenEditor starts an authoring session and returns its token together
// with the initial working copy.
func (s *Server) OpenEditor(c *fiber.Ctx) error {
	var req openEditorRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	if req.PostID == "" {
		token, sess := s.editors.OpenDraft()
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"token": token,
			"state": sess.Snapshot(),
		})
	}

	token, sess, err := s.editors.OpenPost(c.UserContext(), req.PostID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"state": sess.Snapshot(),
	})
}

// editorSession resolves the token param. When the session is gone (closed
// or never opened) it writes a 404 and returns errResponseWritten; callers
// must then return nil.
func (s *Server) editorSession(c *fiber.Ctx) (*service.EditorSession, error) {
	sess, ok := s.editors.Get(c.Params("token"))
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("editor session", c.Params("token")))
		return nil, errResponseWritten
	}
	return sess, nil
}

// GetEditorState returns the current working copy.
func (s *Server) GetEditorState(c *fiber.Ctx) error {
	sess, err := s.editorSession(c)
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{"state": sess.Snapshot()})
}

// PatchEditor merges a partial edit into the working copy.
func (s *Server) PatchEditor(c *fiber.Ctx) error {
	sess, err := s.editorSession(c)
	if err != nil {
		return nil
	}
	var update service.EditorUpdate
	if err := c.BodyParser(&update); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	return c.JSON(fiber.Map{"state": sess.Apply(update)})
}

type tagRequest struct {
	Tag string `json:"tag"`
}

// AddEditorTag appends a tag to the working copy.
func (s *Server) AddEditorTag(c *fiber.Ctx) error {
	sess, err := s.editorSession(c)
	if err != nil {
		return nil
	}
	var req tagRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	return c.JSON(fiber.Map{"state": sess.AddTag(req.Tag)})
}

// RemoveEditorTag deletes a tag from the working copy.
func (s *Server) RemoveEditorTag(c *fiber.Ctx) error {
	sess, err := s.editorSession(c)
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{"state": sess.RemoveTag(c.Params("tag"))})
}

// UploadEditorImage validates and stores a featured image, pointing the
// working copy at its public URL.
func (s *Server) UploadEditorImage(c *fiber.Ctx) error {
	sess, err := s.editorSession(c)
	if err != nil {
		return nil
	}

	header, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("An image file is required"))
	}

	file, err := header.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read the uploaded file"))
	}
	defer file.Close()

	url, err := sess.AttachImage(c.UserContext(), header.Filename,
		header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"url":   url,
		"state": sess.Snapshot(),
	})
}

// RemoveEditorImage detaches the featured image from the working copy. The
// blob itself stays in storage; DELETE /admin/images cleans it up.
func (s *Server) RemoveEditorImage(c *fiber.Ctx) error {
	sess, err := s.editorSession(c)
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{"state": sess.RemoveImage()})
}

type saveEditorRequest struct {
	Intent string `json:"intent"`
}

// SaveEditor validates and stores the working copy. The intent decides the
// publication state: "draft" stores unpublished, "publish" stores live.
func (s *Server) SaveEditor(c *fiber.Ctx) error {
	sess, err := s.editorSession(c)
	if err != nil {
		return nil
	}
	var req saveEditorRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	var intent service.SaveIntent
	switch req.Intent {
	case string(service.SaveDraft):
		intent = service.SaveDraft
	case string(service.SavePublish):
		intent = service.SavePublish
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Intent must be \"draft\" or \"publish\""))
	}

	post, err := sess.Save(c.UserContext(), intent)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"post": presentPost(post)})
}

// CloseEditor tears down the session. Unsaved new-post edits are discarded.
func (s *Server) CloseEditor(c *fiber.Ctx) error {
	s.editors.Close(c.Params("token"))
	return c.SendStatus(fiber.StatusNoContent)
}
