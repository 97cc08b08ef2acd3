package handler

import (
	"github.com/cliptake/api/internal/model"
	"github.com/cliptake/api/internal/service"
	"github.com/cliptake/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type PlaybackHandler struct {
	service   *service.PlaybackService
	validator *validator.Validate
}

func NewPlaybackHandler(svc *service.PlaybackService, v *validator.Validate) *PlaybackHandler {
	return &PlaybackHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/playback/sessions
func (h *PlaybackHandler) Create(c *fiber.Ctx) error {
	var req model.CreatePlaybackRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}

// Get handles GET /api/playback/sessions/:sessionId
func (h *PlaybackHandler) Get(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	result, err := h.service.Get(sessionID)
	if err != nil {
		if err.Error() == "session not found" {
			return response.NotFound(c, "Session not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// SetBounds handles PUT /api/playback/sessions/:sessionId/bounds
func (h *PlaybackHandler) SetBounds(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	var req model.PlaybackBoundsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.SetBounds(sessionID, &req)
	if err != nil {
		if err.Error() == "session not found" {
			return response.NotFound(c, "Session not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Play handles POST /api/playback/sessions/:sessionId/play
func (h *PlaybackHandler) Play(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	var req model.PlaybackPlayRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	result, err := h.service.Play(sessionID, &req)
	if err != nil {
		if err.Error() == "session not found" {
			return response.NotFound(c, "Session not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Stop handles POST /api/playback/sessions/:sessionId/stop
func (h *PlaybackHandler) Stop(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	result, err := h.service.Stop(sessionID)
	if err != nil {
		if err.Error() == "session not found" {
			return response.NotFound(c, "Session not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Delete handles DELETE /api/playback/sessions/:sessionId
func (h *PlaybackHandler) Delete(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	if err := h.service.Delete(sessionID); err != nil {
		if err.Error() == "session not found" {
			return response.NotFound(c, "Session not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.NoContent(c)
}
