package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/zeitgeist/pkg/youtube"
)

// DefaultResolution is the video height requested from YouTube.
const DefaultResolution = 360

// UnsupportedFormatError means the content cannot be acquired in a form the
// classifier accepts (e.g. a Shorts clip or no mp4 at the requested height).
type UnsupportedFormatError struct {
	URL    string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported video format for %s: %s", e.URL, e.Reason)
}

// DownloadError wraps a failed downloader run. It unwraps to an
// UnsupportedFormatError via errors.As since that is how callers report it.
type DownloadError struct {
	URL    string
	Output string
	Err    error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() []error {
	return []error{e.Err, &UnsupportedFormatError{URL: e.URL, Reason: "download failed"}}
}

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// YtDlp downloads YouTube videos by shelling out to yt-dlp.
type YtDlp struct {
	Binary     string
	Resolution int
	run        Runner
}

// NewYtDlp returns a downloader using the given binary (default "yt-dlp").
func NewYtDlp(binary string, resolution int) *YtDlp {
	if binary == "" {
		binary = "yt-dlp"
	}
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &YtDlp{Binary: binary, Resolution: resolution, run: execRunner}
}

// WithRunner replaces the command runner (tests).
func (y *YtDlp) WithRunner(r Runner) *YtDlp {
	y.run = r
	return y
}

// Download fetches url as an mp4 of the configured height into dir and
// returns the path of the written file.
func (y *YtDlp) Download(ctx context.Context, url, dir string) (string, error) {
	if youtube.IsShorts(url) {
		return "", &UnsupportedFormatError{URL: url, Reason: "shorts are not supported"}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	args := []string{
		"--format", fmt.Sprintf("mp4[height=%d]", y.Resolution),
		"--output", filepath.Join(dir, "video.%(ext)s"),
		"--no-overwrites",
		"--no-playlist",
		"--quiet",
		url,
	}

	out, err := y.run(ctx, y.Binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var notFound *exec.Error
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("run %s: %w", y.Binary, err)
		}
		log.Warn().Err(err).Str("url", url).Str("output", strings.TrimSpace(string(out))).Msg("yt-dlp failed")
		return "", &DownloadError{URL: url, Output: string(out), Err: err}
	}

	path := filepath.Join(dir, "video.mp4")
	if _, err := os.Stat(path); err != nil {
		return "", &DownloadError{URL: url, Output: string(out), Err: err}
	}
	return path, nil
}
