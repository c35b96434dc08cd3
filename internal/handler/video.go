package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/zeitgeist/internal/middleware"
	"github.com/mathieu-neron/zeitgeist/internal/service"
)

type VideoHandler struct {
	svc *service.ClassificationService
}

func NewVideoHandler(svc *service.ClassificationService) *VideoHandler {
	return &VideoHandler{svc: svc}
}

// Get handles GET /api/videos/:submissionId
// Serves the stored video of a submission so the result page can play it.
func (h *VideoHandler) Get(c fiber.Ctx) error {
	path, err := h.svc.VideoPath(c.Params("submissionId"))
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Video not found or expired")
		}
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read video")
	}
	return c.SendFile(path)
}
