package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/zeitgeist/internal/acquire"
	"github.com/mathieu-neron/zeitgeist/internal/model"
	"github.com/mathieu-neron/zeitgeist/pkg/hash"
	"github.com/mathieu-neron/zeitgeist/pkg/scores"
	"github.com/mathieu-neron/zeitgeist/pkg/youtube"
)

// Classification modes for YouTube submissions.
const (
	ModeUpload = "upload" // download locally, then POST the file
	ModeRemote = "remote" // let the classifier fetch the URL itself
)

var (
	ErrInvalidURL    = errors.New("not a YouTube video URL")
	ErrVideoNotFound = errors.New("video not found")
)

// Classifier is the remote classification service.
type Classifier interface {
	ClassifyURL(ctx context.Context, videoURL string) ([]byte, error)
	ClassifyFile(ctx context.Context, filename string, video io.Reader) ([]byte, error)
}

// Downloader fetches a video into dir and returns the file path.
type Downloader interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

// ClassificationService runs one submission end to end: acquire the video,
// send it to the classifier, reshape the result into display tables.
type ClassificationService struct {
	classifier Classifier
	downloader Downloader
	cache      *CacheService
	workDir    string
	mode       string
}

func NewClassificationService(cl Classifier, dl Downloader, cache *CacheService, workDir, mode string) *ClassificationService {
	if mode != ModeRemote {
		mode = ModeUpload
	}
	if cache == nil {
		cache = &CacheService{}
	}
	return &ClassificationService{
		classifier: cl,
		downloader: dl,
		cache:      cache,
		workDir:    workDir,
		mode:       mode,
	}
}

// ClassifyURL classifies a YouTube video.
func (s *ClassificationService) ClassifyURL(ctx context.Context, rawURL string) (*model.ClassificationResponse, error) {
	if !youtube.IsYouTubeURL(rawURL) {
		return nil, ErrInvalidURL
	}
	if youtube.IsShorts(rawURL) {
		return nil, &acquire.UnsupportedFormatError{URL: rawURL, Reason: "shorts are not supported"}
	}

	videoURL := youtube.Normalize(rawURL)
	cacheID := youtube.VideoID(videoURL)
	if cacheID == "" {
		cacheID = videoURL
	}
	key := urlKey(hash.SHA256Hex(cacheID))
	id := uuid.NewString()

	if cached := s.lookup(ctx, key); cached != nil {
		cached.SubmissionID = id
		cached.VideoURL = videoURL
		return cached, nil
	}

	var (
		body []byte
		err  error
	)
	if s.mode == ModeRemote {
		body, err = s.classifier.ClassifyURL(ctx, videoURL)
	} else {
		body, err = s.downloadAndClassify(ctx, videoURL, filepath.Join(s.workDir, id))
	}
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, key, id, model.SourceYouTube, videoURL, body)
}

func (s *ClassificationService) downloadAndClassify(ctx context.Context, videoURL, dir string) ([]byte, error) {
	path, err := s.downloader.Download(ctx, videoURL, dir)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open downloaded video: %w", err)
	}
	defer f.Close()

	return s.classifier.ClassifyFile(ctx, path, f)
}

// ClassifyUpload stores an uploaded video under a new submission and
// classifies it. The stored copy is served back by VideoPath until swept.
func (s *ClassificationService) ClassifyUpload(ctx context.Context, filename string, src io.Reader) (*model.ClassificationResponse, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.workDir, id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create submission dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".mp4"
	}
	path := filepath.Join(dir, "video"+ext)
	digest, err := saveAndHash(path, src)
	if err != nil {
		return nil, err
	}

	videoURL := "/api/videos/" + id
	key := fileKey(digest)
	if cached := s.lookup(ctx, key); cached != nil {
		cached.SubmissionID = id
		cached.VideoURL = videoURL
		return cached, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stored upload: %w", err)
	}
	defer f.Close()

	body, err := s.classifier.ClassifyFile(ctx, filename, f)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, key, id, model.SourceUpload, videoURL, body)
}

// VideoPath returns the stored video of a submission.
func (s *ClassificationService) VideoPath(submissionID string) (string, error) {
	if _, err := uuid.Parse(submissionID); err != nil {
		return "", ErrVideoNotFound
	}
	matches, err := filepath.Glob(filepath.Join(s.workDir, submissionID, "video.*"))
	if err != nil || len(matches) == 0 {
		return "", ErrVideoNotFound
	}
	return matches[0], nil
}

func (s *ClassificationService) lookup(ctx context.Context, key string) *model.ClassificationResponse {
	cached, err := s.cache.GetResult(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: get result error")
		return nil
	}
	if cached != nil {
		cached.Cached = true
	}
	return cached
}

func (s *ClassificationService) finish(ctx context.Context, key, id, source, videoURL string, body []byte) (*model.ClassificationResponse, error) {
	tables, err := scores.ReshapeJSON(body)
	if err != nil {
		return nil, err
	}

	resp := model.NewClassificationResponse(id, source, videoURL, tables)
	if err := s.cache.SetResult(ctx, key, resp); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: set result error")
	}

	log.Info().
		Str("submission_id", id).
		Str("source", source).
		Int("frames", len(resp.Frames)).
		Int("visual_detected", len(resp.Visual.Rows)).
		Int("audio_detected", len(resp.Audio.Rows)).
		Msg("classification complete")
	return resp, nil
}

func saveAndHash(path string, src io.Reader) (digest string, retErr error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing upload file: %w", cerr)
		}
	}()

	digest, err = hash.ContentHash(io.TeeReader(src, out))
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return digest, nil
}
