package store

import (
	"time"
)

// Worker represents a hospital worker who can be matched by the attendance
// scanner. A worker with a nil Descriptor is unenrolled.
type Worker struct {
	ID         int64
	Name       string
	Role       string
	Descriptor []float32 // face descriptor, fixed length (vision.DescriptorDim), nil if unenrolled
	CreatedAt  time.Time
}

// Enrolled returns true if the worker has a stored face descriptor.
func (w *Worker) Enrolled() bool {
	return len(w.Descriptor) > 0
}

// AttendanceRecord is one row per (worker, calendar date). CheckOut is nil
// until the worker is matched a second time that day.
type AttendanceRecord struct {
	ID       int64
	WorkerID int64
	Date     time.Time // calendar date, time part zero
	CheckIn  time.Time
	CheckOut *time.Time
	Status   string
}

// StatusPresent is the status written for every scanner-produced record.
const StatusPresent = "present"

// Day truncates a timestamp to its calendar date in local time.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
