package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/zeitgeist/internal/acquire"
	"github.com/mathieu-neron/zeitgeist/internal/classifier"
	"github.com/mathieu-neron/zeitgeist/internal/middleware"
	"github.com/mathieu-neron/zeitgeist/internal/model"
	"github.com/mathieu-neron/zeitgeist/internal/service"
	"github.com/mathieu-neron/zeitgeist/pkg/scores"
)

// User-facing messages for rejected content.
const (
	msgShorts          = `"Shorts" video format not supported. Please choose a non-"Shorts" video.`
	msgDownloadFailed  = `Video format not supported (is it a "Shorts" video?). Please choose a different video.`
	msgClassifierError = "The classification service failed to process the video. Please try again."
	msgMalformed       = "The classification service returned an unexpected result. Please try again."
)

type ClassifyHandler struct {
	svc       *service.ClassificationService
	maxUpload int64
}

func NewClassifyHandler(svc *service.ClassificationService, maxUpload int64) *ClassifyHandler {
	return &ClassifyHandler{svc: svc, maxUpload: maxUpload}
}

// ClassifyURL handles POST /api/classify/url
func (h *ClassifyHandler) ClassifyURL(c fiber.Ctx) error {
	var req model.ClassifyURLRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	return h.classifyURL(c, req.URL)
}

// ClassifyQuery handles GET /api/classify?url=X
func (h *ClassifyHandler) ClassifyQuery(c fiber.Ctx) error {
	return h.classifyURL(c, fiber.Query[string](c, "url"))
}

func (h *ClassifyHandler) classifyURL(c fiber.Ctx, raw string) error {
	videoURL, errMsg := middleware.ValidateYouTubeURL(raw)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_URL", errMsg)
	}

	start := time.Now()
	resp, err := h.svc.ClassifyURL(c.Context(), videoURL)
	observeClassification(model.SourceYouTube, start, resp, err)
	if err != nil {
		return writeClassifyError(c, err)
	}
	return c.JSON(resp)
}

// Upload handles POST /api/classify/upload (multipart field "file")
func (h *ClassifyHandler) Upload(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FILE", "file field is required")
	}

	name, errMsg := middleware.ValidateUploadName(fh.Filename)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FILE", errMsg)
	}
	if fh.Size == 0 {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FILE", "file is empty")
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return middleware.ErrorResponse(c, fiber.StatusRequestEntityTooLarge, "INVALID_FILE", "file is too large")
	}

	f, err := fh.Open()
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FILE", "could not read uploaded file")
	}
	defer f.Close()

	start := time.Now()
	resp, err := h.svc.ClassifyUpload(c.Context(), name, f)
	observeClassification(model.SourceUpload, start, resp, err)
	if err != nil {
		return writeClassifyError(c, err)
	}
	return c.JSON(resp)
}

// writeClassifyError maps a failed submission to the API error envelope.
// No tables are ever returned alongside an error.
func writeClassifyError(c fiber.Ctx, err error) error {
	var (
		dlErr     *acquire.DownloadError
		fmtErr    *acquire.UnsupportedFormatError
		svcErr    *classifier.ServiceError
		malformed *scores.MalformedResultError
		schema    *scores.SchemaError
	)

	switch {
	case errors.Is(err, service.ErrInvalidURL):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_URL", "url must be a YouTube video link")
	case errors.As(err, &dlErr):
		return middleware.ErrorResponse(c, fiber.StatusUnprocessableEntity, "UNSUPPORTED_FORMAT", msgDownloadFailed)
	case errors.As(err, &fmtErr):
		return middleware.ErrorResponse(c, fiber.StatusUnprocessableEntity, "UNSUPPORTED_FORMAT", msgShorts)
	case errors.As(err, &svcErr):
		msg := svcErr.Detail
		if msg == "" {
			msg = msgClassifierError
		}
		return middleware.ErrorResponse(c, fiber.StatusBadGateway, "CLASSIFIER_ERROR", msg)
	case errors.As(err, &malformed), errors.As(err, &schema):
		log.Warn().Err(err).Msg("classifier returned malformed result")
		return middleware.ErrorResponse(c, fiber.StatusBadGateway, "MALFORMED_RESULT", msgMalformed)
	default:
		log.Error().Err(err).Msg("classification failed")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to classify video")
	}
}

func observeClassification(source string, start time.Time, resp *model.ClassificationResponse, err error) {
	if Metrics.ClassificationsTotal == nil {
		return
	}
	Metrics.ClassificationDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	outcome := "error"
	switch {
	case err != nil:
	case resp.DetectedCount() == 0:
		outcome = "neutral"
	default:
		outcome = "detected"
	}
	Metrics.ClassificationsTotal.WithLabelValues(source, outcome).Inc()
	if err != nil {
		return
	}

	if resp.Cached {
		Metrics.CacheHits.Inc()
	} else {
		Metrics.CacheMisses.Inc()
	}
	for _, row := range resp.Visual.Rows {
		Metrics.DetectedCategories.WithLabelValues("visual", detectedLabels.label(row.Category)).Inc()
	}
	for _, row := range resp.Audio.Rows {
		Metrics.DetectedCategories.WithLabelValues("audio", detectedLabels.label(row.Category)).Inc()
	}
}
