package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medelia/face-attendance/internal/store"
)

// AttendanceStore is the persistence surface the state machine needs.
type AttendanceStore interface {
	store.AttendanceReader
	store.AttendanceWriter
}

// OutcomeKind classifies the result of processing a matched worker.
type OutcomeKind string

const (
	// OutcomeCheckedIn means a new record was created with check_in set.
	OutcomeCheckedIn OutcomeKind = "checked_in"
	// OutcomeCheckedOut means the existing record's check_out was set.
	OutcomeCheckedOut OutcomeKind = "checked_out"
	// OutcomeAlreadyDone means the worker is fully checked out for the day.
	// Informational; no write was performed.
	OutcomeAlreadyDone OutcomeKind = "already_checked_out"
	// OutcomeWriteFailed means the insert or update was rejected.
	OutcomeWriteFailed OutcomeKind = "write_failed"
)

// Outcome is the result of one attendance transition attempt.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Record  *store.AttendanceRecord
	Err     error
}

// markAttendance runs the per-day state machine for a matched worker:
// no record yet -> check in; record without check_out -> check out; both
// set -> informational no-op. The read-then-write sequence relies on the
// unique (worker_id, date) index to reject concurrent duplicates.
func markAttendance(ctx context.Context, att AttendanceStore, workerID int64, name string, now time.Time) Outcome {
	rec, err := att.GetForDay(ctx, workerID, now)
	if err != nil {
		return Outcome{
			Kind:    OutcomeWriteFailed,
			Message: fmt.Sprintf("Save Failed: %v", err),
			Err:     err,
		}
	}

	if rec == nil {
		created, err := att.CheckIn(ctx, workerID, now)
		if err != nil {
			return Outcome{
				Kind:    OutcomeWriteFailed,
				Message: fmt.Sprintf("Save Failed: %v", err),
				Err:     err,
			}
		}
		return Outcome{
			Kind:    OutcomeCheckedIn,
			Message: fmt.Sprintf("Welcome, %s! (Checked In)", name),
			Record:  created,
		}
	}

	if rec.CheckOut == nil {
		if err := att.CheckOut(ctx, rec.ID, now); err != nil {
			if errors.Is(err, store.ErrAlreadyCheckedOut) {
				return Outcome{Kind: OutcomeAlreadyDone, Message: "Already Checked Out today!"}
			}
			return Outcome{
				Kind:    OutcomeWriteFailed,
				Message: fmt.Sprintf("Save Failed: %v", err),
				Err:     err,
			}
		}
		return Outcome{
			Kind:    OutcomeCheckedOut,
			Message: fmt.Sprintf("Goodbye, %s! (Checked Out)", name),
			Record:  rec,
		}
	}

	return Outcome{Kind: OutcomeAlreadyDone, Message: "Already Checked Out today!"}
}
