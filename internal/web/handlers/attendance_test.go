package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medelia/face-attendance/internal/store/mock"
)

func seedAttendance(t *testing.T) *mock.MockAttendanceStore {
	t.Helper()
	att := mock.NewMockAttendanceStore()
	now := time.Now()

	rec, err := att.CheckIn(context.Background(), 1, now.Add(-8*time.Hour))
	if err != nil {
		t.Fatalf("failed to seed check-in: %v", err)
	}
	if err := att.CheckOut(context.Background(), rec.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("failed to seed check-out: %v", err)
	}
	if _, err := att.CheckIn(context.Background(), 2, now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("failed to seed check-in: %v", err)
	}
	return att
}

func TestAttendanceListDay(t *testing.T) {
	h := NewAttendanceHandler(seedAttendance(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil)
	rec := httptest.NewRecorder()
	h.ListDay(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["count"].(float64) != 2 {
		t.Errorf("expected 2 records today, got %v", body["count"])
	}

	// Newest check-in first.
	records := body["records"].([]any)
	first := records[0].(map[string]any)
	if first["worker_id"].(float64) != 2 {
		t.Errorf("expected the most recent check-in first, got %v", first)
	}
}

func TestAttendanceListDay_EmptyDate(t *testing.T) {
	h := NewAttendanceHandler(seedAttendance(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance?date=2001-01-01", nil)
	rec := httptest.NewRecorder()
	h.ListDay(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["count"].(float64) != 0 {
		t.Errorf("expected no records, got %v", body["count"])
	}
	if body["records"] == nil {
		t.Error("records must be an empty list, not null")
	}
}

func TestAttendanceListDay_InvalidDate(t *testing.T) {
	h := NewAttendanceHandler(mock.NewMockAttendanceStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance?date=31.08.2026", nil)
	rec := httptest.NewRecorder()
	h.ListDay(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAttendanceListWorker(t *testing.T) {
	h := NewAttendanceHandler(seedAttendance(t))

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/workers/1/attendance", nil),
		map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.ListWorker(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["count"].(float64) != 1 {
		t.Errorf("expected 1 record for worker 1, got %v", body["count"])
	}
}

func TestAttendanceListWorker_InvalidLimit(t *testing.T) {
	h := NewAttendanceHandler(mock.NewMockAttendanceStore())

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/workers/1/attendance?limit=-3", nil),
		map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.ListWorker(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
