// Package delivery streams the purchased asset to the client, from a
// remote origin when one is configured and from local storage otherwise.
package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Lumi182/paygate/internal/domain"
)

const defaultHeaderTimeout = 15 * time.Second

// Streamer copies asset bytes to an HTTP response.
//
// Stream is two-phase: the connect phase (origin request or file open)
// can fail without touching the response, which lets the caller roll
// back token consumption; once the transfer phase begins the response
// is committed and failures only abort the connection.
type Streamer struct {
	originURL  string
	filePath   string
	filename   string
	httpClient *http.Client
}

func NewStreamer(originURL, filePath, filename string, opts ...StreamerOption) *Streamer {
	s := &Streamer{
		originURL: originURL,
		filePath:  filePath,
		filename:  filename,
		// No overall client timeout: the transfer may legitimately take
		// long for large assets. Only the wait for origin headers is
		// bounded; cancellation rides on the request context.
		httpClient: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: defaultHeaderTimeout},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type StreamerOption func(*Streamer)

// WithHTTPClient overrides the origin HTTP client.
func WithHTTPClient(client *http.Client) StreamerOption {
	return func(s *Streamer) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// Stream writes the asset to w. started reports whether any response
// data (headers or body) was written; when false the caller may safely
// recover, e.g. by rolling back token consumption.
func (s *Streamer) Stream(ctx context.Context, w http.ResponseWriter) (started bool, err error) {
	if s.originURL != "" {
		return s.streamOrigin(ctx, w)
	}
	return s.streamFile(w)
}

func (s *Streamer) streamOrigin(ctx context.Context, w http.ResponseWriter) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.originURL, nil)
	if err != nil {
		return false, fmt.Errorf("%w: build origin request: %v", domain.ErrOriginUnreachable, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: fetch origin: %v", domain.ErrOriginUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return false, fmt.Errorf("%w: origin status %s", domain.ErrOriginUnreachable, resp.Status)
	}
	if resp.ContentLength == 0 {
		return false, fmt.Errorf("%w: origin returned empty body", domain.ErrOriginUnreachable)
	}

	// When the origin does not announce a length, peek one byte so an
	// empty body is caught before the response is committed.
	body := io.Reader(resp.Body)
	if resp.ContentLength < 0 {
		first := make([]byte, 1)
		n, err := io.ReadFull(resp.Body, first)
		if err != nil {
			return false, fmt.Errorf("%w: origin returned empty body", domain.ErrOriginUnreachable)
		}
		body = io.MultiReader(bytes.NewReader(first[:n]), resp.Body)
	}

	s.writeAttachmentHeaders(w, resp.ContentLength)
	w.WriteHeader(http.StatusOK)

	// The response is committed; a failure past this point cannot change
	// the status code and must not re-open the token.
	if _, err := io.Copy(w, body); err != nil {
		return true, fmt.Errorf("copy origin stream: %w", err)
	}
	return true, nil
}

func (s *Streamer) streamFile(w http.ResponseWriter) (bool, error) {
	file, err := os.Open(s.filePath)
	if err != nil {
		return false, fmt.Errorf("open asset file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return false, fmt.Errorf("stat asset file: %w", err)
	}

	s.writeAttachmentHeaders(w, info.Size())
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, file); err != nil {
		return true, fmt.Errorf("copy asset file: %w", err)
	}
	return true, nil
}

func (s *Streamer) writeAttachmentHeaders(w http.ResponseWriter, contentLength int64) {
	h := w.Header()
	h.Set("Content-Type", "application/zip")
	h.Set("Content-Disposition", `attachment; filename="`+s.filename+`"`)
	if contentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(contentLength, 10))
	}
}
