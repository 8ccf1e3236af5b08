// Package scanner runs the live attendance scan loop: it polls the kiosk
// camera, detects a face, matches it against the enrolled gallery and drives
// the per-day check-in / check-out state machine.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/medelia/face-attendance/internal/camera"
	"github.com/medelia/face-attendance/internal/config"
	"github.com/medelia/face-attendance/internal/gallery"
	"github.com/medelia/face-attendance/internal/store"
	"github.com/medelia/face-attendance/internal/vision"
)

// detectFrameMaxSize caps the longer frame edge before detection. Full
// resolution frames only slow the vision service down.
const detectFrameMaxSize = 640

// Overlay box colors, matched by the kiosk display.
const (
	overlayColorMatch   = "#10b981"
	overlayColorUnknown = "#ef4444"
	overlayColorEmpty   = "#3b82f6"
)

// Startup phase errors. Each initialization phase fails with its own
// sentinel so the kiosk can tell the operator what broke.
var (
	ErrCameraStart = errors.New("camera startup failed")
	ErrModelLoad   = errors.New("vision model load failed")
	ErrGalleryLoad = errors.New("face database load failed")
)

// ErrAlreadyStarted is returned when Start is called twice on one session.
var ErrAlreadyStarted = errors.New("scanner session already started")

// State is the scanner session lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateScanning     State = "scanning"
	StateProcessing   State = "processing"
	StateSuccess      State = "success"
	StateError        State = "error"
)

// Overlay describes the box drawn over the current video frame. Each new
// overlay replaces the previous one entirely.
type Overlay struct {
	Label    string    `json:"label"`
	Color    string    `json:"color"`
	BBox     []float64 `json:"bbox,omitempty"`
	Distance float64   `json:"distance,omitempty"`
}

// Status is a point-in-time snapshot of a session.
type Status struct {
	ID          string   `json:"id"`
	State       State    `json:"state"`
	Message     string   `json:"message,omitempty"`
	GallerySize int      `json:"gallery_size"`
	Overlay     *Overlay `json:"overlay,omitempty"`
}

// Detector turns a camera frame into at most one face detection.
// Implemented by vision.Client.
type Detector interface {
	Warmup(ctx context.Context) error
	DetectSingleFace(ctx context.Context, frame []byte) (*vision.Detection, error)
}

// Session is one run of the scan loop, from camera open to stop. A session
// is single-use; restart means a new session with a freshly loaded gallery.
type Session struct {
	ID     string
	Events *EventBroadcaster

	// Now supplies timestamps for attendance writes. Tests override it.
	Now func() time.Time

	cfg        config.ScannerConfig
	camera     camera.FrameSource
	detector   Detector
	workers    store.WorkerReader
	attendance AttendanceStore

	mu      sync.RWMutex
	state   State
	message string
	overlay *Overlay
	gallery *gallery.Gallery

	processing atomic.Bool // an attendance write is in flight
	tickBusy   atomic.Bool // a detection round trip is in flight
	procWG     sync.WaitGroup

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	stop    sync.Once
}

// NewSession wires a session from its dependencies. Start must be called to
// run it.
func NewSession(cfg config.ScannerConfig, cam camera.FrameSource, detector Detector, workers store.WorkerReader, attendance AttendanceStore) *Session {
	return &Session{
		ID:         uuid.New().String(),
		Events:     &EventBroadcaster{},
		Now:        time.Now,
		cfg:        cfg,
		camera:     cam,
		detector:   detector,
		workers:    workers,
		attendance: attendance,
		state:      StateIdle,
		done:       make(chan struct{}),
	}
}

// Start launches the session loop in the background. The session runs until
// Stop, an unrecoverable error, or an auto-stop after a successful write.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop ends the session: the loop exits, the camera is released and
// transient state is cleared. Safe to call more than once and from any
// goroutine.
func (s *Session) Stop() {
	s.stop.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

// Done is closed once the session loop has fully exited and the camera is
// released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Active reports whether the session has started and not yet finished.
func (s *Session) Active() bool {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		ID:      s.ID,
		State:   s.state,
		Message: s.message,
	}
	if s.gallery != nil {
		st.GallerySize = s.gallery.Count()
	}
	if s.overlay != nil {
		cp := *s.overlay
		st.Overlay = &cp
	}
	return st
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.Events.CloseListeners()
	defer func() {
		if err := s.camera.Close(); err != nil {
			log.Printf("scanner: closing camera: %v", err)
		}
	}()
	// An in-flight attendance write must finish before the session is done.
	defer s.procWG.Wait()

	if err := s.initialize(ctx); err != nil {
		if ctx.Err() != nil {
			s.setState(StateIdle, "")
			return
		}
		log.Printf("scanner: session %s failed to start: %v", s.ID, err)
		s.setState(StateError, err.Error())
		s.Events.SendEvent(Event{Type: "error", Message: err.Error()})
		return
	}

	s.setState(StateScanning, s.scanningMessage())

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.reset()
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// initialize runs the three startup phases in order. The phase message is
// broadcast before each phase so a failure is attributable to it.
func (s *Session) initialize(ctx context.Context) error {
	s.setState(StateInitializing, "Starting Camera...")
	if err := s.camera.Open(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCameraStart, err)
	}

	s.setState(StateInitializing, "Loading AI Models...")
	if err := s.detector.Warmup(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	s.setState(StateInitializing, "Fetching Database...")
	g, err := gallery.Load(ctx, s.workers, s.cfg.MatchThreshold)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGalleryLoad, err)
	}

	s.mu.Lock()
	s.gallery = g
	s.mu.Unlock()
	return nil
}

func (s *Session) scanningMessage() string {
	s.mu.RLock()
	g := s.gallery
	s.mu.RUnlock()
	if g == nil || g.Empty() {
		return "No Registered Faces Found."
	}
	return fmt.Sprintf("%d faces loaded", g.Count())
}

// tick runs one detection round trip. At most one round trip is in flight;
// ticks that fire while a previous one is still waiting on the vision
// service are dropped, they do not queue up.
func (s *Session) tick(ctx context.Context) {
	if !s.tickBusy.CompareAndSwap(false, true) {
		return
	}
	defer s.tickBusy.Store(false)

	frame, err := s.camera.NextFrame(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrFrameNotReady) || ctx.Err() != nil {
			return
		}
		log.Printf("scanner: reading frame: %v", err)
		return
	}

	if small, err := camera.DownscaleFrame(frame, detectFrameMaxSize); err == nil {
		frame = small
	}

	det, err := s.detector.DetectSingleFace(ctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("scanner: detection failed: %v", err)
		}
		return
	}
	if det == nil {
		s.setOverlay(nil)
		return
	}

	s.mu.RLock()
	g := s.gallery
	s.mu.RUnlock()

	result := g.Match(det.Descriptor)
	switch result.Outcome {
	case gallery.OutcomeEmptyGallery:
		s.setOverlay(&Overlay{Label: "No Database", Color: overlayColorEmpty, BBox: det.BBox})
	case gallery.OutcomeUnknown:
		s.setOverlay(&Overlay{Label: "User Not Found", Color: overlayColorUnknown, BBox: det.BBox, Distance: result.Distance})
	case gallery.OutcomeMatch:
		s.setOverlay(&Overlay{Label: result.Name, Color: overlayColorMatch, BBox: det.BBox, Distance: result.Distance})
		log.Printf("scanner: verified %s (distance %.2f, threshold %.2f)", result.Name, result.Distance, g.Threshold())
		s.handleMatch(ctx, result)
	}
}

// handleMatch kicks off the attendance write for a matched worker. The
// processing flag keeps it to one write at a time while the loop keeps
// rendering overlays; repeat matches of the same face during the write are
// absorbed here.
func (s *Session) handleMatch(ctx context.Context, result gallery.MatchResult) {
	if !s.processing.CompareAndSwap(false, true) {
		return
	}
	s.procWG.Add(1)
	go func() {
		defer s.procWG.Done()
		s.processMatch(ctx, result)
	}()
}

func (s *Session) processMatch(ctx context.Context, result gallery.MatchResult) {
	s.setState(StateProcessing, fmt.Sprintf("Marking Attendance: %s...", result.Name))

	outcome := markAttendance(ctx, s.attendance, result.WorkerID, result.Name, s.Now())

	switch outcome.Kind {
	case OutcomeCheckedIn, OutcomeCheckedOut, OutcomeAlreadyDone:
		s.setState(StateSuccess, outcome.Message)
		s.Events.SendEvent(Event{Type: "result", Message: outcome.Message, Data: outcome.Record})
		s.sleep(ctx, s.cfg.SuccessDelay)
		s.Stop()
	case OutcomeWriteFailed:
		log.Printf("scanner: attendance write for %s failed: %v", result.Name, outcome.Err)
		s.setState(StateError, outcome.Message)
		s.Events.SendEvent(Event{Type: "error", Message: outcome.Message})
		s.sleep(ctx, s.cfg.ErrorDelay)
		if ctx.Err() == nil {
			s.processing.Store(false)
			s.setState(StateScanning, s.scanningMessage())
		}
	}
}

// reset clears transient state on stop so a later session starts clean.
func (s *Session) reset() {
	s.processing.Store(false)
	s.setOverlay(nil)
	s.setState(StateIdle, "")
	s.Events.SendEvent(Event{Type: "stopped"})
}

func (s *Session) setState(state State, message string) {
	s.mu.Lock()
	s.state = state
	s.message = message
	s.mu.Unlock()
	s.Events.SendEvent(Event{Type: "status", Message: message, Data: state})
}

func (s *Session) setOverlay(o *Overlay) {
	s.mu.Lock()
	cleared := o == nil && s.overlay == nil
	s.overlay = o
	s.mu.Unlock()
	if cleared {
		// No face before, no face now. Nothing to broadcast.
		return
	}
	s.Events.SendEvent(Event{Type: "overlay", Data: o})
}

func (s *Session) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
