package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"
)

// MJPEGSource reads frames from an IP camera serving an MJPEG stream
// (multipart/x-mixed-replace). Video only, default constraints.
type MJPEGSource struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	resp   *http.Response
	reader *multipart.Reader
	closed bool
}

// NewMJPEGSource creates a frame source for the given MJPEG stream URL.
func NewMJPEGSource(url string) *MJPEGSource {
	return &MJPEGSource{
		url:    url,
		client: &http.Client{},
	}
}

// Open connects to the camera stream. A connection failure here is a
// camera-phase startup error, distinct from model or database failures.
func (s *MJPEGSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resp != nil {
		return nil
	}
	s.closed = false

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("camera stream unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("camera stream error (status %d)", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		return fmt.Errorf("camera did not return an MJPEG stream (got %q)", resp.Header.Get("Content-Type"))
	}

	s.resp = resp
	s.reader = multipart.NewReader(resp.Body, params["boundary"])
	return nil
}

// NextFrame reads the next frame from the stream. Returns ErrFrameNotReady
// for frames that do not yet decode to nonzero dimensions.
func (s *MJPEGSource) NextFrame(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	reader := s.reader
	closed := s.closed
	s.mu.Unlock()

	if closed || reader == nil {
		return nil, errors.New("camera stream is not open")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	part, err := reader.NextPart()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("camera stream ended: %w", err)
		}
		return nil, fmt.Errorf("failed to read stream part: %w", err)
	}
	defer part.Close()

	frame, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	if err := checkFrame(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// Close releases the camera stream.
func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.resp != nil {
		err := s.resp.Body.Close()
		s.resp = nil
		s.reader = nil
		if err != nil {
			return fmt.Errorf("closing camera stream: %w", err)
		}
	}
	return nil
}
