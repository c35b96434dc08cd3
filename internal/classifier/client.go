package classifier

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	processPath     = "/process/"
	maxResponseSize = 32 << 20
	defaultTimeout  = 5 * time.Minute
)

// ServiceError is returned when the classification service answers with a
// non-200 status. Detail holds the service's "detail" message, if any.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("classifier returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("classifier returned status %d: %s", e.StatusCode, e.Detail)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RPS caps outbound requests per second. Zero means unlimited.
	RPS        float64
	HTTPClient *http.Client
}

// Client talks to the remote video classification service.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a Client for the service rooted at cfg.BaseURL.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.base
}

// ClassifyURL asks the service to fetch and classify videoURL itself
// (GET {base}/process/?url=...). It returns the raw JSON result.
func (c *Client) ClassifyURL(ctx context.Context, videoURL string) ([]byte, error) {
	endpoint := c.base + processPath + "?" + url.Values{"url": {videoURL}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	return c.do(ctx, req)
}

// ClassifyFile uploads a video as multipart field "file"
// (POST {base}/process/). The form is streamed, so the video is never held
// in memory. It returns the raw JSON result.
func (c *Client) ClassifyFile(ctx context.Context, filename string, video io.Reader) ([]byte, error) {
	pr, pw := io.Pipe()
	defer pr.Close()

	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, filepath.Base(filename), video))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+processPath, pr)
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(ctx, req)
}

func writeForm(mw *multipart.Writer, filename string, video io.Reader) error {
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, video); err != nil {
		return fmt.Errorf("copy video into form: %w", err)
	}
	return mw.Close()
}

// Ping checks that the service root answers without a server error.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusInternalServerError {
		return &ServiceError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("classifier rate limit: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read classifier response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Detail: detail(data)}
	}
	return data, nil
}

// detail pulls the "detail" field out of an error body. Non-string details
// (e.g. validation error lists) are returned as raw JSON.
func detail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	d := gjson.GetBytes(body, "detail")
	switch {
	case !d.Exists(), d.Type == gjson.Null:
		return ""
	case d.Type == gjson.String:
		return d.String()
	default:
		return d.Raw
	}
}
