package middleware

import (
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/zeitgeist/pkg/youtube"
)

// Input limits for submissions.
const (
	MaxURLLen      = 2048
	MaxFilenameLen = 255
)

// AllowedVideoExts are the upload extensions the classifier accepts.
var AllowedVideoExts = map[string]bool{
	".mp4": true,
	".mkv": true,
	".avi": true,
}

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateYouTubeURL trims the URL and checks it is a YouTube video link.
func ValidateYouTubeURL(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "url is required"
	}
	if len(raw) > MaxURLLen {
		return "", "url must be at most 2048 characters"
	}
	if !youtube.IsYouTubeURL(raw) {
		return "", "url must be a YouTube video link"
	}
	return raw, ""
}

// ValidateUploadName checks an uploaded file's name and extension.
func ValidateUploadName(name string) (string, string) {
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == "/" {
		return "", "file name is required"
	}
	if len(name) > MaxFilenameLen {
		return "", "file name must be at most 255 characters"
	}
	if !AllowedVideoExts[strings.ToLower(filepath.Ext(name))] {
		return "", "file must be one of: mp4, mkv, avi"
	}
	return name, ""
}
