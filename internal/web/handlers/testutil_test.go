package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medelia/face-attendance/internal/camera"
	"github.com/medelia/face-attendance/internal/config"
	"github.com/medelia/face-attendance/internal/scanner"
	"github.com/medelia/face-attendance/internal/store"
	"github.com/medelia/face-attendance/internal/store/mock"
	"github.com/medelia/face-attendance/internal/vision"
)

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeJSON decodes a response body into a map for assertions.
func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

// multipartImageRequest builds a request with a single "file" form field.
func multipartImageRequest(t *testing.T, path string, frame []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "face.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(frame); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// stubCamera serves a fixed frame.
type stubCamera struct {
	frame []byte
}

func (c *stubCamera) Open(ctx context.Context) error { return nil }

func (c *stubCamera) NextFrame(ctx context.Context) ([]byte, error) { return c.frame, nil }

func (c *stubCamera) Close() error { return nil }

// stubDetector returns the same detection for every frame.
type stubDetector struct {
	detection *vision.Detection
	err       error
}

func (d *stubDetector) Warmup(ctx context.Context) error { return nil }

func (d *stubDetector) DetectSingleFace(ctx context.Context, frame []byte) (*vision.Detection, error) {
	return d.detection, d.err
}

func testDescriptor() []float32 {
	d := make([]float32, vision.DescriptorDim)
	d[0] = 1
	return d
}

func testDetection() *vision.Detection {
	return &vision.Detection{
		Descriptor: testDescriptor(),
		BBox:       []float64{10, 10, 90, 90},
		DetScore:   0.97,
	}
}

// testManager wires a scanner manager on stubbed camera and detector. The
// detector sees no face, so sessions scan until stopped.
func testManager(workers *mock.MockWorkerStore, att *mock.MockAttendanceStore) *scanner.Manager {
	cfg := config.ScannerConfig{
		MatchThreshold: 0.55,
		TickInterval:   5 * time.Millisecond,
		SuccessDelay:   20 * time.Millisecond,
		ErrorDelay:     20 * time.Millisecond,
	}
	return scanner.NewManager(cfg,
		func() camera.FrameSource { return &stubCamera{frame: []byte{0xFF, 0xD8, 0xFF, 0xE0}} },
		&stubDetector{},
		workers,
		att)
}

func seedWorkers() *mock.MockWorkerStore {
	workers := mock.NewMockWorkerStore()
	workers.AddWorker(store.Worker{ID: 1, Name: "Alice Nováková", Role: "nurse", Descriptor: testDescriptor()})
	workers.AddWorker(store.Worker{ID: 2, Name: "Bob", Role: "worker"})
	return workers
}
