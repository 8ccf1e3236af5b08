package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/medelia/face-attendance/internal/camera"
	"github.com/medelia/face-attendance/internal/enroll"
	"github.com/medelia/face-attendance/internal/store"
)

// maxEnrollUploadSize caps uploaded enrollment images at 10 MB.
const maxEnrollUploadSize = 10 << 20

// EnrollHandler handles face enrollment endpoints.
type EnrollHandler struct {
	service     *enroll.Service
	newSnapshot func() camera.FrameSource
}

// NewEnrollHandler creates a new enrollment handler. newSnapshot may be nil
// when no snapshot camera is configured; enrollment then requires an
// uploaded image.
func NewEnrollHandler(service *enroll.Service, newSnapshot func() camera.FrameSource) *EnrollHandler {
	return &EnrollHandler{service: service, newSnapshot: newSnapshot}
}

// Enroll captures one face for the worker and overwrites any previously
// stored descriptor. The frame comes from an uploaded "file" form field, or
// from the snapshot camera when no file is sent.
func (h *EnrollHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	id, ok := workerIDParam(w, r)
	if !ok {
		return
	}

	frame, ok, err := h.uploadedFrame(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var worker *store.Worker
	if ok {
		worker, err = h.service.EnrollFrame(r.Context(), id, frame)
	} else {
		if h.newSnapshot == nil {
			respondError(w, http.StatusBadRequest, "no image uploaded and no snapshot camera configured")
			return
		}
		worker, err = h.service.EnrollFromCamera(r.Context(), h.newSnapshot(), id)
	}

	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			respondError(w, http.StatusNotFound, "worker not found")
		case errors.Is(err, enroll.ErrNoFace):
			respondError(w, http.StatusUnprocessableEntity, "no face detected")
		default:
			respondError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, summarize(*worker))
}

// Clear removes the worker's descriptor.
func (h *EnrollHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, ok := workerIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Clear(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "worker not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to clear descriptor")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// uploadedFrame reads the optional "file" form field. Returns ok=false when
// the request carries no multipart image at all.
func (h *EnrollHandler) uploadedFrame(r *http.Request) ([]byte, bool, error) {
	if err := r.ParseMultipartForm(maxEnrollUploadSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, false, nil
		}
		return nil, false, errors.New("failed to parse multipart form")
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, false, nil
		}
		return nil, false, errors.New("failed to read uploaded file")
	}
	defer file.Close()

	frame, err := io.ReadAll(io.LimitReader(file, maxEnrollUploadSize))
	if err != nil {
		return nil, false, errors.New("failed to read uploaded file")
	}
	return frame, true, nil
}
