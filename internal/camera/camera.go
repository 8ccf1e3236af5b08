// Package camera provides frame sources for the attendance kiosk camera.
// The scanner owns exactly one source at a time; closing it releases the
// underlying stream so the device can be reacquired later.
package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// ErrFrameNotReady is returned while the camera is connected but not yet
// producing decodable frames. The scanner skips such ticks silently.
var ErrFrameNotReady = errors.New("camera frame not ready")

// FrameSource produces camera frames as encoded images.
type FrameSource interface {
	// Open acquires the camera stream. Must be called before NextFrame.
	Open(ctx context.Context) error
	// NextFrame returns the most recent frame. Returns ErrFrameNotReady
	// while the stream is warming up.
	NextFrame(ctx context.Context) ([]byte, error)
	// Close releases the camera stream. Safe to call more than once.
	Close() error
}

// checkFrame verifies the frame decodes to nonzero dimensions.
// Partial frames from a warming-up stream fail here, not downstream.
func checkFrame(frame []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return ErrFrameNotReady
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return ErrFrameNotReady
	}
	return nil
}
