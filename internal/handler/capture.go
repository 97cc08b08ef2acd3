package handler

import (
	"errors"

	"github.com/cliptake/api/internal/capture"
	"github.com/cliptake/api/internal/model"
	"github.com/cliptake/api/internal/service"
	"github.com/cliptake/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type CaptureHandler struct {
	service   *service.CaptureService
	validator *validator.Validate
}

func NewCaptureHandler(svc *service.CaptureService, v *validator.Validate) *CaptureHandler {
	return &CaptureHandler{
		service:   svc,
		validator: v,
	}
}

// CreateCameraSession handles POST /api/capture/sessions
func (h *CaptureHandler) CreateCameraSession(c *fiber.Ctx) error {
	result, err := h.service.CreateCameraSession(c.Context())
	if err != nil {
		return captureError(c, err)
	}

	return response.Created(c, result)
}

// CreateVoiceSession handles POST /api/capture/voice-sessions
func (h *CaptureHandler) CreateVoiceSession(c *fiber.Ctx) error {
	var req model.CreateVoiceSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.CreateVoiceSession(c.Context(), &req)
	if err != nil {
		return captureError(c, err)
	}

	return response.Created(c, result)
}

// GetSession handles GET /api/capture/sessions/:sessionId
func (h *CaptureHandler) GetSession(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	result, err := h.service.GetSession(sessionID)
	if err != nil {
		return captureError(c, err)
	}

	return response.OK(c, result)
}

// StartRecording handles POST /api/capture/sessions/:sessionId/record/start
func (h *CaptureHandler) StartRecording(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	result, err := h.service.StartRecording(c.Context(), sessionID)
	if err != nil {
		return captureError(c, err)
	}

	return response.OK(c, result)
}

// StopRecording handles POST /api/capture/sessions/:sessionId/record/stop
func (h *CaptureHandler) StopRecording(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	result, err := h.service.StopRecording(c.Context(), sessionID)
	if err != nil {
		return captureError(c, err)
	}

	return response.OK(c, result)
}

// SwitchCamera handles POST /api/capture/sessions/:sessionId/switch
func (h *CaptureHandler) SwitchCamera(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	result, err := h.service.SwitchCamera(c.Context(), sessionID)
	if err != nil {
		return captureError(c, err)
	}

	return response.OK(c, result)
}

// ToggleTorch handles POST /api/capture/sessions/:sessionId/torch
func (h *CaptureHandler) ToggleTorch(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	result, err := h.service.ToggleTorch(c.Context(), sessionID)
	if err != nil {
		return captureError(c, err)
	}

	return response.OK(c, result)
}

// ToggleVoiceRecording handles POST /api/capture/voice-sessions/:sessionId/toggle
func (h *CaptureHandler) ToggleVoiceRecording(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	result, err := h.service.ToggleVoiceRecording(c.Context(), sessionID)
	if err != nil {
		return captureError(c, err)
	}

	return response.OK(c, result)
}

// DeleteSession handles DELETE /api/capture/sessions/:sessionId
func (h *CaptureHandler) DeleteSession(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sessionID == "" {
		return response.ValidationError(c, "Session ID is required", nil)
	}

	if err := h.service.DeleteSession(c.Context(), sessionID); err != nil {
		return captureError(c, err)
	}

	return response.NoContent(c)
}

// captureError maps capture session errors to HTTP responses
func captureError(c *fiber.Ctx, err error) error {
	switch {
	case err.Error() == "session not found":
		return response.NotFound(c, "Session not found")
	case errors.Is(err, capture.ErrPermissionDenied):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, capture.ErrNoCamera),
		errors.Is(err, capture.ErrNoMicrophone),
		errors.Is(err, capture.ErrInvalidOperation),
		errors.Is(err, capture.ErrSessionTornDown):
		return response.ValidationError(c, err.Error(), nil)
	default:
		return response.ServiceError(c, err.Error())
	}
}
