package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Camera   CameraConfig
	Vision   VisionConfig
	Scanner  ScannerConfig
	Database DatabaseConfig
	Legacy   LegacyConfig
}

type CameraConfig struct {
	StreamURL   string // MJPEG stream URL of the kiosk camera (e.g., http://camera:8081/stream)
	SnapshotURL string // single-frame snapshot URL, used by the enrollment flow
}

type VisionConfig struct {
	URL string // face embedding service URL, defaults to http://localhost:8000
	Dim int    // descriptor dimension, defaults to 128
}

type ScannerConfig struct {
	MatchThreshold float64       // cosine distance above which a face is "unknown" (default 0.55)
	TickInterval   time.Duration // detection poll interval (default 100ms)
	SuccessDelay   time.Duration // display delay before auto-stop after a successful write (default 3s)
	ErrorDelay     time.Duration // delay before resuming scanning after a write failure (default 4s)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type LegacyConfig struct {
	DatabaseDSN string // MySQL DSN of the hospital management system, for worker import
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a duration.
// Returns the default value if the env var is unset, empty, or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Camera: CameraConfig{
			StreamURL:   os.Getenv("CAMERA_STREAM_URL"),
			SnapshotURL: os.Getenv("CAMERA_SNAPSHOT_URL"),
		},
		Vision: VisionConfig{
			URL: os.Getenv("VISION_URL"),
			Dim: envInt("VISION_DIM", 128),
		},
		Scanner: ScannerConfig{
			MatchThreshold: envFloat("SCANNER_MATCH_THRESHOLD", 0.55),
			TickInterval:   envDuration("SCANNER_TICK_INTERVAL", 100*time.Millisecond),
			SuccessDelay:   envDuration("SCANNER_SUCCESS_DELAY", 3*time.Second),
			ErrorDelay:     envDuration("SCANNER_ERROR_DELAY", 4*time.Second),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Legacy: LegacyConfig{
			DatabaseDSN: os.Getenv("HMS_DATABASE_DSN"),
		},
	}
}
