package middleware

import (
	"strings"
	"testing"
)

func TestValidateYouTubeURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantURL string
		wantErr bool
	}{
		{"valid watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"valid short link", "youtu.be/dQw4w9WgXcQ", "youtu.be/dQw4w9WgXcQ", false},
		{"trims whitespace", "  youtu.be/dQw4w9WgXcQ  ", "youtu.be/dQw4w9WgXcQ", false},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"not youtube", "https://example.com/video.mp4", "", true},
		{"too long", "https://youtu.be/dQw4w9WgXcQ?x=" + strings.Repeat("a", MaxURLLen), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidateYouTubeURL(tt.input)
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if got != tt.wantURL {
				t.Errorf("got %q, want %q", got, tt.wantURL)
			}
		})
	}
}

func TestValidateUploadName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"mp4", "clip.mp4", "clip.mp4", false},
		{"uppercase ext", "CLIP.MKV", "CLIP.MKV", false},
		{"avi", "home movie.avi", "home movie.avi", false},
		{"strips directories", "../../etc/clip.mp4", "clip.mp4", false},
		{"wrong ext", "clip.mov", "", true},
		{"no ext", "clip", "", true},
		{"empty", "", "", true},
		{"too long", strings.Repeat("a", 300) + ".mp4", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidateUploadName(tt.input)
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/api/videos/5f1d7a2e-0000-4000-8000-000000000000", "/api/videos/:submissionId"},
		{"/api/classify/url", "/api/classify/url"},
		{"/api/videos/", "/api/videos/"},
		{"/health/live", "/health/live"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.input); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestHashIPForLog(t *testing.T) {
	a := hashIPForLog("192.168.1.1")
	if len(a) != 12 {
		t.Errorf("hash length = %d, want 12", len(a))
	}
	if a == hashIPForLog("10.0.0.1") {
		t.Error("different IPs should hash differently")
	}
	if a != hashIPForLog("192.168.1.1") {
		t.Error("hash should be deterministic")
	}
}
