package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// jpegHeader is a minimal JPEG magic prefix for MIME detection.
var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}

func newDetectServer(t *testing.T, resp detectResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect/face" {
			http.NotFound(w, r)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("expected multipart request, got %s", r.Header.Get("Content-Type"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func makeDescriptor(dim int, fill float32) []float32 {
	d := make([]float32, dim)
	for i := range d {
		d[i] = fill
	}
	return d
}

func TestDetectSingleFace_NoFace(t *testing.T) {
	server := newDetectServer(t, detectResponse{FacesCount: 0})
	defer server.Close()

	c := NewClient(server.URL, DescriptorDim)
	det, err := c.DetectSingleFace(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if det != nil {
		t.Errorf("expected nil detection for empty frame, got %+v", det)
	}
}

func TestDetectSingleFace_PicksBestScore(t *testing.T) {
	server := newDetectServer(t, detectResponse{
		FacesCount: 2,
		Faces: []Detection{
			{Descriptor: makeDescriptor(DescriptorDim, 0.1), DetScore: 0.60, BBox: []float64{0, 0, 10, 10}},
			{Descriptor: makeDescriptor(DescriptorDim, 0.2), DetScore: 0.95, BBox: []float64{5, 5, 20, 20}},
		},
	})
	defer server.Close()

	c := NewClient(server.URL, DescriptorDim)
	det, err := c.DetectSingleFace(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if det == nil {
		t.Fatal("expected a detection")
	}
	if det.DetScore != 0.95 {
		t.Errorf("expected best-scoring detection, got score %v", det.DetScore)
	}
}

func TestDetectSingleFace_WrongDimension(t *testing.T) {
	server := newDetectServer(t, detectResponse{
		FacesCount: 1,
		Faces: []Detection{
			{Descriptor: makeDescriptor(64, 0.1), DetScore: 0.9},
		},
	})
	defer server.Close()

	c := NewClient(server.URL, DescriptorDim)
	_, err := c.DetectSingleFace(context.Background(), jpegHeader)
	if err == nil {
		t.Fatal("expected error for wrong descriptor dimension")
	}
}

func TestDetectSingleFace_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, DescriptorDim)
	_, err := c.DetectSingleFace(context.Background(), jpegHeader)
	if err == nil {
		t.Fatal("expected error for server failure")
	}
}

func TestWarmup_AllModelsLoaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(modelsResponse{
			Status: "ready",
			Models: []string{"tiny_face_detector", "face_landmark_68", "face_recognition"},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, DescriptorDim)
	if err := c.Warmup(context.Background()); err != nil {
		t.Errorf("unexpected warmup error: %v", err)
	}
}

func TestWarmup_MissingModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(modelsResponse{
			Status: "ready",
			Models: []string{"tiny_face_detector"},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, DescriptorDim)
	err := c.Warmup(context.Background())
	if err == nil {
		t.Fatal("expected error for missing model")
	}
	if !strings.Contains(err.Error(), "face_landmark_68") && !strings.Contains(err.Error(), "face_recognition") {
		t.Errorf("error should name the missing model, got: %v", err)
	}
}

func TestLoadManifest(t *testing.T) {
	m, err := LoadManifest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Bundle == "" {
		t.Error("expected non-empty bundle name")
	}
	if len(m.Models) != 3 {
		t.Errorf("expected 3 models in manifest, got %d", len(m.Models))
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpegHeader, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"short", []byte{0x01}, "application/octet-stream"},
		{"unknown", []byte("notanimage"), "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.want {
				t.Errorf("detectMIMEType(%s) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}
