package scanner

import (
	"context"
	"errors"
	"sync"

	"github.com/medelia/face-attendance/internal/camera"
	"github.com/medelia/face-attendance/internal/config"
	"github.com/medelia/face-attendance/internal/store"
)

// ErrSessionRunning is returned when a start is requested while a session is
// already active. The kiosk runs one scan at a time.
var ErrSessionRunning = errors.New("a scanner session is already running")

// ErrNoSession is returned when stop or status is requested with no session.
var ErrNoSession = errors.New("no scanner session")

// Manager owns the single active scanner session of this instance.
type Manager struct {
	cfg        config.ScannerConfig
	newCamera  func() camera.FrameSource
	detector   Detector
	workers    store.WorkerReader
	attendance AttendanceStore

	mu      sync.Mutex
	current *Session
}

// NewManager creates a session manager. newCamera is called once per session
// so every session gets a fresh stream connection.
func NewManager(cfg config.ScannerConfig, newCamera func() camera.FrameSource, detector Detector, workers store.WorkerReader, attendance AttendanceStore) *Manager {
	return &Manager{
		cfg:        cfg,
		newCamera:  newCamera,
		detector:   detector,
		workers:    workers,
		attendance: attendance,
	}
}

// StartSession starts a new session unless one is already active. The session
// runs on a background context; its lifetime is not tied to the caller's
// request.
func (m *Manager) StartSession() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.Active() {
		return nil, ErrSessionRunning
	}

	session := NewSession(m.cfg, m.newCamera(), m.detector, m.workers, m.attendance)
	if err := session.Start(context.Background()); err != nil {
		return nil, err
	}
	m.current = session
	return session, nil
}

// Current returns the most recent session, or nil if none was ever started.
// The session may have already finished.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// StopSession stops the active session and waits for it to release the
// camera.
func (m *Manager) StopSession() error {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()

	if current == nil || !current.Active() {
		return ErrNoSession
	}
	current.Stop()
	<-current.Done()
	return nil
}
