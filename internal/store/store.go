// Package store defines the persistence interfaces for workers and
// attendance records. The postgres package provides the production
// implementation; the mock package provides an in-memory one for tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced worker or record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyCheckedOut is returned when a checkout targets a record whose
// check_out is already set. Informational for the caller, never retried.
var ErrAlreadyCheckedOut = errors.New("already checked out")

// WorkerReader reads worker rows.
type WorkerReader interface {
	// GetWorker returns the worker or ErrNotFound.
	GetWorker(ctx context.Context, id int64) (*Worker, error)
	// ListWorkers returns all workers, descriptors included.
	ListWorkers(ctx context.Context) ([]Worker, error)
	// SearchWorkers returns workers whose name matches the query,
	// ignoring case and diacritics.
	SearchWorkers(ctx context.Context, name string) ([]Worker, error)
	// ListEnrolled returns only workers with a stored descriptor.
	ListEnrolled(ctx context.Context) ([]Worker, error)
}

// WorkerWriter mutates worker rows.
type WorkerWriter interface {
	// SetDescriptor overwrites the worker's stored descriptor. Any previous
	// descriptor is fully replaced; there is no multi-sample history.
	SetDescriptor(ctx context.Context, id int64, descriptor []float32) error
	// ClearDescriptor removes the worker's descriptor (un-enrolls them).
	ClearDescriptor(ctx context.Context, id int64) error
	// UpsertWorker inserts or updates a worker row by id, preserving any
	// stored descriptor on update. Used by the legacy HMS import.
	UpsertWorker(ctx context.Context, w Worker) error
}

// AttendanceReader reads attendance records.
type AttendanceReader interface {
	// GetForDay returns the record for (worker, date), or nil if none exists.
	GetForDay(ctx context.Context, workerID int64, date time.Time) (*AttendanceRecord, error)
	// ListForDay returns all records for a date, newest check-in first.
	ListForDay(ctx context.Context, date time.Time) ([]AttendanceRecord, error)
	// ListForWorker returns the worker's records, newest first.
	ListForWorker(ctx context.Context, workerID int64, limit int) ([]AttendanceRecord, error)
}

// AttendanceWriter mutates attendance records.
type AttendanceWriter interface {
	// CheckIn creates the record for (worker, date) with check_in set. The
	// unique (worker_id, date) index rejects a duplicate insert.
	CheckIn(ctx context.Context, workerID int64, at time.Time) (*AttendanceRecord, error)
	// CheckOut sets check_out on an existing record. Returns
	// ErrAlreadyCheckedOut if check_out was already set.
	CheckOut(ctx context.Context, recordID int64, at time.Time) error
}
