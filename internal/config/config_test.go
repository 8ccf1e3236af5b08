package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SCANNER_MATCH_THRESHOLD", "")
	t.Setenv("SCANNER_TICK_INTERVAL", "")
	t.Setenv("VISION_DIM", "")

	cfg := Load()

	if cfg.Scanner.MatchThreshold != 0.55 {
		t.Errorf("expected default threshold 0.55, got %v", cfg.Scanner.MatchThreshold)
	}
	if cfg.Scanner.TickInterval != 100*time.Millisecond {
		t.Errorf("expected default tick interval 100ms, got %v", cfg.Scanner.TickInterval)
	}
	if cfg.Scanner.SuccessDelay != 3*time.Second {
		t.Errorf("expected default success delay 3s, got %v", cfg.Scanner.SuccessDelay)
	}
	if cfg.Scanner.ErrorDelay != 4*time.Second {
		t.Errorf("expected default error delay 4s, got %v", cfg.Scanner.ErrorDelay)
	}
	if cfg.Vision.Dim != 128 {
		t.Errorf("expected default descriptor dim 128, got %d", cfg.Vision.Dim)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SCANNER_MATCH_THRESHOLD", "0.4")
	t.Setenv("SCANNER_TICK_INTERVAL", "250ms")
	t.Setenv("VISION_DIM", "512")
	t.Setenv("CAMERA_STREAM_URL", "http://cam:8081/stream")

	cfg := Load()

	if cfg.Scanner.MatchThreshold != 0.4 {
		t.Errorf("expected threshold 0.4, got %v", cfg.Scanner.MatchThreshold)
	}
	if cfg.Scanner.TickInterval != 250*time.Millisecond {
		t.Errorf("expected tick interval 250ms, got %v", cfg.Scanner.TickInterval)
	}
	if cfg.Vision.Dim != 512 {
		t.Errorf("expected dim 512, got %d", cfg.Vision.Dim)
	}
	if cfg.Camera.StreamURL != "http://cam:8081/stream" {
		t.Errorf("unexpected camera stream URL '%s'", cfg.Camera.StreamURL)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SCANNER_MATCH_THRESHOLD", "not-a-number")
	t.Setenv("SCANNER_TICK_INTERVAL", "-5s")
	t.Setenv("VISION_DIM", "0")

	cfg := Load()

	if cfg.Scanner.MatchThreshold != 0.55 {
		t.Errorf("expected fallback threshold 0.55, got %v", cfg.Scanner.MatchThreshold)
	}
	if cfg.Scanner.TickInterval != 100*time.Millisecond {
		t.Errorf("expected fallback tick interval 100ms, got %v", cfg.Scanner.TickInterval)
	}
	if cfg.Vision.Dim != 128 {
		t.Errorf("expected fallback dim 128, got %d", cfg.Vision.Dim)
	}
}
