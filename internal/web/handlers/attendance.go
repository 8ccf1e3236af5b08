package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/medelia/face-attendance/internal/store"
)

// AttendanceHandler handles attendance record listing endpoints.
type AttendanceHandler struct {
	attendance store.AttendanceReader
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(attendance store.AttendanceReader) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// ListDay returns all records for a date (?date=2026-08-31, default today),
// newest check-in first.
func (h *AttendanceHandler) ListDay(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := time.ParseInLocation("2006-01-02", q, time.Local)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	records, err := h.attendance.ListForDay(r.Context(), date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}
	if records == nil {
		records = []store.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":    store.Day(date).Format("2006-01-02"),
		"records": records,
		"count":   len(records),
	})
}

// ListWorker returns a worker's attendance history, newest first.
func (h *AttendanceHandler) ListWorker(w http.ResponseWriter, r *http.Request) {
	id, ok := workerIDParam(w, r)
	if !ok {
		return
	}

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.attendance.ListForWorker(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}
	if records == nil {
		records = []store.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"worker_id": id,
		"records":   records,
		"count":     len(records),
	})
}
