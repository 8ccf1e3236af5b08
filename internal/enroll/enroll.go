// Package enroll implements the one-shot face enrollment flow: capture a
// single frame, detect a single face, overwrite the worker's descriptor.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medelia/face-attendance/internal/camera"
	"github.com/medelia/face-attendance/internal/store"
	"github.com/medelia/face-attendance/internal/vision"
)

// snapshotAttempts bounds how long a snapshot capture waits for the camera to
// produce a decodable frame.
const (
	snapshotAttempts = 10
	snapshotRetryGap = 200 * time.Millisecond
)

// ErrNoFace is returned when the captured frame contains no detectable face.
// Nothing is written in that case.
var ErrNoFace = errors.New("no face detected")

// Detector is the face detection dependency. Implemented by vision.Client.
type Detector interface {
	DetectSingleFace(ctx context.Context, frame []byte) (*vision.Detection, error)
}

// WorkerStore is the persistence surface enrollment needs.
type WorkerStore interface {
	store.WorkerReader
	store.WorkerWriter
}

// Service runs enrollments against the worker store.
type Service struct {
	detector Detector
	workers  WorkerStore
}

// NewService creates an enrollment service.
func NewService(detector Detector, workers WorkerStore) *Service {
	return &Service{detector: detector, workers: workers}
}

// EnrollFrame detects a face in the given frame and stores its descriptor on
// the worker, replacing any previous descriptor. The worker must exist.
func (s *Service) EnrollFrame(ctx context.Context, workerID int64, frame []byte) (*store.Worker, error) {
	worker, err := s.workers.GetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	detection, err := s.detector.DetectSingleFace(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("detecting face: %w", err)
	}
	if detection == nil {
		return nil, ErrNoFace
	}

	if err := s.workers.SetDescriptor(ctx, workerID, detection.Descriptor); err != nil {
		return nil, fmt.Errorf("storing descriptor: %w", err)
	}

	worker.Descriptor = detection.Descriptor
	return worker, nil
}

// EnrollFromCamera captures one frame from the source and enrolls it. The
// source is opened and closed here; not-ready frames are retried briefly.
func (s *Service) EnrollFromCamera(ctx context.Context, src camera.FrameSource, workerID int64) (*store.Worker, error) {
	if err := src.Open(ctx); err != nil {
		return nil, fmt.Errorf("opening camera: %w", err)
	}
	defer src.Close()

	frame, err := s.captureFrame(ctx, src)
	if err != nil {
		return nil, err
	}
	return s.EnrollFrame(ctx, workerID, frame)
}

func (s *Service) captureFrame(ctx context.Context, src camera.FrameSource) ([]byte, error) {
	for attempt := 0; attempt < snapshotAttempts; attempt++ {
		frame, err := src.NextFrame(ctx)
		if err == nil {
			return frame, nil
		}
		if !errors.Is(err, camera.ErrFrameNotReady) {
			return nil, fmt.Errorf("capturing frame: %w", err)
		}
		select {
		case <-time.After(snapshotRetryGap):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("camera produced no usable frame after %d attempts", snapshotAttempts)
}

// Clear removes the worker's descriptor so they no longer match in the
// gallery.
func (s *Service) Clear(ctx context.Context, workerID int64) error {
	return s.workers.ClearDescriptor(ctx, workerID)
}
