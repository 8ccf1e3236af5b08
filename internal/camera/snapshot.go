package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// SnapshotSource fetches single frames from a camera snapshot URL. Used by the
// enrollment flow, which needs one explicit capture rather than a live stream.
type SnapshotSource struct {
	url    string
	client *http.Client
}

// NewSnapshotSource creates a snapshot-based frame source.
func NewSnapshotSource(url string) *SnapshotSource {
	return &SnapshotSource{
		url:    url,
		client: &http.Client{},
	}
}

// Open verifies the snapshot endpoint by fetching one frame and discarding it.
func (s *SnapshotSource) Open(ctx context.Context) error {
	_, err := s.NextFrame(ctx)
	return err
}

// NextFrame fetches a fresh snapshot.
func (s *SnapshotSource) NextFrame(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camera snapshot unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera snapshot error (status %d)", resp.StatusCode)
	}

	frame, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if err := checkFrame(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// Close is a no-op; snapshots hold no persistent stream.
func (s *SnapshotSource) Close() error {
	return nil
}
