package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/medelia/face-attendance/internal/store"
)

// WorkersHandler handles worker listing endpoints.
type WorkersHandler struct {
	workers store.WorkerReader
}

// NewWorkersHandler creates a new workers handler.
func NewWorkersHandler(workers store.WorkerReader) *WorkersHandler {
	return &WorkersHandler{workers: workers}
}

// WorkerSummary is the API shape of a worker. Descriptors never leave the
// service; only the enrollment status does.
type WorkerSummary struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	FaceRegistered bool      `json:"face_registered"`
	CreatedAt      time.Time `json:"created_at"`
}

func summarize(w store.Worker) WorkerSummary {
	return WorkerSummary{
		ID:             w.ID,
		Name:           w.Name,
		Role:           w.Role,
		FaceRegistered: w.Enrolled(),
		CreatedAt:      w.CreatedAt,
	}
}

// List returns all workers, or a name search when ?q= is given. The search
// is case and diacritic insensitive.
func (h *WorkersHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		workers []store.Worker
		err     error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		workers, err = h.workers.SearchWorkers(r.Context(), q)
	} else {
		workers, err = h.workers.ListWorkers(r.Context())
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list workers")
		return
	}

	summaries := make([]WorkerSummary, 0, len(workers))
	for _, worker := range workers {
		summaries = append(summaries, summarize(worker))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"workers": summaries,
		"count":   len(summaries),
	})
}

// Get returns a single worker.
func (h *WorkersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := workerIDParam(w, r)
	if !ok {
		return
	}

	worker, err := h.workers.GetWorker(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "worker not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get worker")
		return
	}
	respondJSON(w, http.StatusOK, summarize(*worker))
}
