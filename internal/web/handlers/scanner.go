package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/medelia/face-attendance/internal/scanner"
)

// ScannerHandler handles scanner session lifecycle endpoints.
type ScannerHandler struct {
	manager *scanner.Manager
}

// NewScannerHandler creates a new scanner handler.
func NewScannerHandler(manager *scanner.Manager) *ScannerHandler {
	return &ScannerHandler{manager: manager}
}

// Start launches a new scanner session. The kiosk runs one session at a
// time; a second start while one is active is rejected.
func (h *ScannerHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.StartSession()
	if err != nil {
		if errors.Is(err, scanner.ErrSessionRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"session_id": session.ID,
		"state":      string(session.Status().State),
	})
}

// Stop ends the active session and waits for the camera to be released.
func (h *ScannerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.StopSession(); err != nil {
		if errors.Is(err, scanner.ErrNoSession) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"stopped": true})
}

// Status returns a snapshot of the most recent session.
func (h *ScannerHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.manager.Current()
	if session == nil {
		respondError(w, http.StatusNotFound, "no scanner session")
		return
	}
	respondJSON(w, http.StatusOK, session.Status())
}

// Events streams session events via SSE: status transitions, per-tick
// overlay replacements and attendance results.
func (h *ScannerHandler) Events(w http.ResponseWriter, r *http.Request) {
	session := h.manager.Current()
	if session == nil {
		respondError(w, http.StatusNotFound, "no scanner session")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sendSSEEvent(w, flusher, "status", session.Status())
	if !session.Active() {
		return
	}

	eventCh := session.Events.AddListener()
	defer session.Events.RemoveListener(eventCh)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
		}
	}
}

// sendSSEEvent writes a single SSE frame and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}
