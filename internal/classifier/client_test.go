package classifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"audio_score": [{}], "frames_score": []}`

func TestClassifyURL_SendsQuery(t *testing.T) {
	var gotPath, gotURL, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotURL = r.URL.Query().Get("url")
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/"})
	body, err := c.ClassifyURL(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, okBody, string(body))
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/process/", gotPath)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", gotURL)
}

func TestClassifyFile_SendsMultipart(t *testing.T) {
	var gotName, gotContent, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		f, fh, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName = fh.Filename
		gotContent = string(b)
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.ClassifyFile(context.Background(), "/tmp/work/clip.mp4", strings.NewReader("video-bytes"))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "clip.mp4", gotName)
	assert.Equal(t, "video-bytes", gotContent)
}

// gatedReader yields head, then blocks until gate is closed before yielding
// the rest. It fails if gate stays open, which happens when the request is
// not sent until the whole body has been read.
type gatedReader struct {
	head []byte
	rest io.Reader
	gate <-chan struct{}
	sent bool
}

func (g *gatedReader) Read(p []byte) (int, error) {
	if !g.sent {
		g.sent = true
		return copy(p, g.head), nil
	}
	select {
	case <-g.gate:
	case <-time.After(5 * time.Second):
		return 0, errors.New("request body read before the request reached the server")
	}
	return g.rest.Read(p)
}

func TestClassifyFile_StreamsBody(t *testing.T) {
	started := make(chan struct{})
	var gotContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotContent = string(b)
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	video := &gatedReader{head: []byte("head-"), rest: strings.NewReader("tail"), gate: started}

	c := New(Config{BaseURL: srv.URL})
	_, err := c.ClassifyFile(context.Background(), "clip.mp4", video)
	require.NoError(t, err)
	assert.Equal(t, "head-tail", gotContent)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestClassifyFile_ReaderErrorAbortsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	body, err := c.ClassifyFile(context.Background(), "clip.mp4", failingReader{})
	require.Error(t, err)
	assert.Nil(t, body)

	var svcErr *ServiceError
	assert.False(t, errors.As(err, &svcErr))
}

func TestClassify_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"string detail", http.StatusBadRequest, `{"detail": "Video is longer than 4 minutes"}`, "Video is longer than 4 minutes"},
		{"list detail", http.StatusUnprocessableEntity, `{"detail": [{"msg": "field required"}]}`, `[{"msg": "field required"}]`},
		{"null detail", http.StatusInternalServerError, `{"detail": null}`, ""},
		{"no detail", http.StatusInternalServerError, `{"error": "x"}`, ""},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := New(Config{BaseURL: srv.URL})
			_, err := c.ClassifyURL(context.Background(), "https://youtu.be/dQw4w9WgXcQ")

			var se *ServiceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.wantDetail, se.Detail)
		})
	}
}

func TestClassify_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.ClassifyURL(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.Error(t, err)

	var se *ServiceError
	assert.NotErrorAs(t, err, &se)
}

func TestClassify_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RPS: 0.001})
	_, err := c.ClassifyURL(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ClassifyURL(ctx, "b")
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	assert.NoError(t, c.Ping(context.Background()))

	status = http.StatusServiceUnavailable
	assert.Error(t, c.Ping(context.Background()))
}
