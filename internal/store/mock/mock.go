// Package mock provides in-memory implementations of the store interfaces
// for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/medelia/face-attendance/internal/store"
)

// MockWorkerStore is an in-memory implementation of store.WorkerReader and
// store.WorkerWriter.
type MockWorkerStore struct {
	mu      sync.RWMutex
	workers map[int64]*store.Worker

	// Error injection
	GetError    error
	ListError   error
	SearchError error
	SetError    error
	UpsertError error
}

// NewMockWorkerStore creates a new mock worker store.
func NewMockWorkerStore() *MockWorkerStore {
	return &MockWorkerStore{
		workers: make(map[int64]*store.Worker),
	}
}

// AddWorker adds a worker to the mock store.
func (m *MockWorkerStore) AddWorker(w store.Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[w.ID] = &w
}

// GetWorker retrieves a worker by id.
func (m *MockWorkerStore) GetWorker(ctx context.Context, id int64) (*store.Worker, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *MockWorkerStore) sortedWorkers() []store.Worker {
	workers := make([]store.Worker, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, *w)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
	return workers
}

// ListWorkers returns all workers.
func (m *MockWorkerStore) ListWorkers(ctx context.Context) ([]store.Worker, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedWorkers(), nil
}

// SearchWorkers returns workers whose normalized name contains the query.
func (m *MockWorkerStore) SearchWorkers(ctx context.Context, name string) ([]store.Worker, error) {
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	normalized := store.NormalizeWorkerName(name)
	var results []store.Worker
	for _, w := range m.sortedWorkers() {
		if strings.Contains(store.NormalizeWorkerName(w.Name), normalized) {
			results = append(results, w)
		}
	}
	return results, nil
}

// ListEnrolled returns only workers with a descriptor.
func (m *MockWorkerStore) ListEnrolled(ctx context.Context) ([]store.Worker, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var enrolled []store.Worker
	for _, w := range m.sortedWorkers() {
		if w.Enrolled() {
			enrolled = append(enrolled, w)
		}
	}
	return enrolled, nil
}

// SetDescriptor overwrites the worker's descriptor.
func (m *MockWorkerStore) SetDescriptor(ctx context.Context, id int64, descriptor []float32) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[id]
	if !ok {
		return store.ErrNotFound
	}
	w.Descriptor = append([]float32(nil), descriptor...)
	return nil
}

// ClearDescriptor removes the worker's descriptor.
func (m *MockWorkerStore) ClearDescriptor(ctx context.Context, id int64) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[id]
	if !ok {
		return store.ErrNotFound
	}
	w.Descriptor = nil
	return nil
}

// UpsertWorker inserts or updates a worker, preserving any descriptor.
func (m *MockWorkerStore) UpsertWorker(ctx context.Context, w store.Worker) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.workers[w.ID]; ok {
		existing.Name = w.Name
		existing.Role = w.Role
		return nil
	}
	cp := w
	cp.Descriptor = nil
	m.workers[w.ID] = &cp
	return nil
}

// MockAttendanceStore is an in-memory implementation of store.AttendanceReader
// and store.AttendanceWriter.
type MockAttendanceStore struct {
	mu      sync.RWMutex
	records map[int64]*store.AttendanceRecord
	nextID  int64

	// WriteDelay simulates a slow database write, letting tests exercise the
	// scanner's processing guard.
	WriteDelay time.Duration

	// Error injection
	GetError      error
	CheckInError  error
	CheckOutError error

	// Write counters for idempotency assertions
	CheckInCalls  int
	CheckOutCalls int
}

// NewMockAttendanceStore creates a new mock attendance store.
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{
		records: make(map[int64]*store.AttendanceRecord),
		nextID:  1,
	}
}

// GetForDay returns the record for (worker, date), or nil if none exists.
func (m *MockAttendanceStore) GetForDay(ctx context.Context, workerID int64, date time.Time) (*store.AttendanceRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	day := store.Day(date)
	for _, rec := range m.records {
		if rec.WorkerID == workerID && rec.Date.Equal(day) {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

// ListForDay returns all records for a date, newest check-in first.
func (m *MockAttendanceStore) ListForDay(ctx context.Context, date time.Time) ([]store.AttendanceRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	day := store.Day(date)
	var records []store.AttendanceRecord
	for _, rec := range m.records {
		if rec.Date.Equal(day) {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CheckIn.After(records[j].CheckIn) })
	return records, nil
}

// ListForWorker returns the worker's records, newest first.
func (m *MockAttendanceStore) ListForWorker(ctx context.Context, workerID int64, limit int) ([]store.AttendanceRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []store.AttendanceRecord
	for _, rec := range m.records {
		if rec.WorkerID == workerID {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CheckIn.After(records[j].CheckIn) })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// CheckIn creates a record for (worker, date). Rejects duplicates the way the
// unique index would.
func (m *MockAttendanceStore) CheckIn(ctx context.Context, workerID int64, at time.Time) (*store.AttendanceRecord, error) {
	if m.WriteDelay > 0 {
		select {
		case <-time.After(m.WriteDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckInCalls++
	if m.CheckInError != nil {
		return nil, m.CheckInError
	}
	day := store.Day(at)
	for _, rec := range m.records {
		if rec.WorkerID == workerID && rec.Date.Equal(day) {
			return nil, fmt.Errorf("duplicate attendance record for worker %d on %s", workerID, day.Format("2006-01-02"))
		}
	}
	rec := &store.AttendanceRecord{
		ID:       m.nextID,
		WorkerID: workerID,
		Date:     day,
		CheckIn:  at,
		Status:   store.StatusPresent,
	}
	m.nextID++
	m.records[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

// CheckOut sets check_out on an existing record.
func (m *MockAttendanceStore) CheckOut(ctx context.Context, recordID int64, at time.Time) error {
	if m.WriteDelay > 0 {
		select {
		case <-time.After(m.WriteDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckOutCalls++
	if m.CheckOutError != nil {
		return m.CheckOutError
	}
	rec, ok := m.records[recordID]
	if !ok {
		return store.ErrNotFound
	}
	if rec.CheckOut != nil {
		return store.ErrAlreadyCheckedOut
	}
	cp := at
	rec.CheckOut = &cp
	return nil
}

// RecordCount returns the number of stored attendance records.
func (m *MockAttendanceStore) RecordCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
