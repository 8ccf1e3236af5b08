// Package vision is the client for the external face embedding service.
// The service detects faces in a frame and returns fixed-length descriptors;
// this package treats the model internals as a black box.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const defaultVisionURL = "http://localhost:8000"

// Client talks to the face embedding service.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient creates a new vision client. dim is the descriptor length the
// service is expected to produce (128 for the default model bundle).
func NewClient(baseURL string, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultVisionURL
	}
	if dim <= 0 {
		dim = DescriptorDim
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{},
	}
}

// Detection represents a single detected face in a frame.
type Detection struct {
	Descriptor []float32 `json:"descriptor"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2] in frame pixel coordinates
	DetScore   float64   `json:"det_score"`
	Dim        int       `json:"dim"`
}

// detectResponse represents the response from the face detection endpoint.
type detectResponse struct {
	FacesCount int         `json:"faces_count"`
	Faces      []Detection `json:"faces"`
	Model      string      `json:"model"`
}

// postMultipartFrame constructs a multipart form with the frame data and posts it
// to the given endpoint. The part carries an explicit Content-Type based on magic
// byte detection so the service does not have to sniff.
func (c *Client) postMultipartFrame(ctx context.Context, endpoint string, frame []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", detectMIMEType(frame))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("failed to write frame data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectSingleFace detects at most one face in the frame and returns its
// descriptor. Returns nil (no error) if the frame contains no face. If the
// service reports multiple faces, the detection with the highest score wins.
func (c *Client) DetectSingleFace(ctx context.Context, frame []byte) (*Detection, error) {
	body, err := c.postMultipartFrame(ctx, "/detect/face", frame)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.FacesCount == 0 || len(resp.Faces) == 0 {
		return nil, nil
	}

	best := &resp.Faces[0]
	for i := 1; i < len(resp.Faces); i++ {
		if resp.Faces[i].DetScore > best.DetScore {
			best = &resp.Faces[i]
		}
	}

	if len(best.Descriptor) != c.dim {
		return nil, fmt.Errorf("descriptor has %d elements, expected %d", len(best.Descriptor), c.dim)
	}

	return best, nil
}

// detectMIMEType detects the MIME type from frame data.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	return "application/octet-stream"
}
