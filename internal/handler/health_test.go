package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		pinger     Pinger
		wantStatus int
		wantBody   string
	}{
		{"classifier up", fakePinger{}, fiber.StatusOK, "healthy"},
		{"classifier down", fakePinger{err: errors.New("refused")}, fiber.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pinger, nil, "test")
			app := fiber.New()
			app.Get("/health/ready", h.Ready)

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health/ready", nil))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body struct {
				Status string                    `json:"status"`
				Checks map[string]map[string]any `json:"checks"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantBody {
				t.Errorf("status field = %q, want %q", body.Status, tt.wantBody)
			}
			if got := body.Checks["redis"]["status"]; got != "disabled" {
				t.Errorf("redis check = %v, want disabled", got)
			}
		})
	}
}

func TestSanitizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/videos/0f8e7c52-1b7a-4e0e-9a59-3c1f0e4f2b61", "/api/videos/:submissionId"},
		{"/api/videos/", "/api/videos/"},
		{"/api/classify/url", "/api/classify/url"},
		{"/health/live", "/health/live"},
	}
	for _, tt := range tests {
		if got := sanitizeEndpoint(tt.path); got != tt.want {
			t.Errorf("sanitizeEndpoint(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
