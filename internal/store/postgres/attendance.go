package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/medelia/face-attendance/internal/store"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = "id, worker_id, date, check_in, check_out, status"

func scanRecord(scan func(dest ...any) error) (*store.AttendanceRecord, error) {
	var rec store.AttendanceRecord
	var checkOut sql.NullTime
	if err := scan(&rec.ID, &rec.WorkerID, &rec.Date, &rec.CheckIn, &checkOut, &rec.Status); err != nil {
		return nil, err
	}
	if checkOut.Valid {
		rec.CheckOut = &checkOut.Time
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]store.AttendanceRecord, error) {
	var records []store.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}

// GetForDay returns the record for (worker, date), or nil if none exists.
func (r *AttendanceRepository) GetForDay(ctx context.Context, workerID int64, date time.Time) (*store.AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE worker_id = $1 AND date = $2",
		workerID, store.Day(date))
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance record: %w", err)
	}
	return rec, nil
}

// ListForDay returns all records for a date, newest check-in first.
func (r *AttendanceRepository) ListForDay(ctx context.Context, date time.Time) ([]store.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE date = $1 ORDER BY check_in DESC",
		store.Day(date))
	if err != nil {
		return nil, fmt.Errorf("query attendance for day: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListForWorker returns the worker's records, newest first.
func (r *AttendanceRepository) ListForWorker(ctx context.Context, workerID int64, limit int) ([]store.AttendanceRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE worker_id = $1 ORDER BY date DESC, check_in DESC LIMIT $2",
		workerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query attendance for worker: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// CheckIn creates the record for (worker, date) with check_in set. A
// concurrent duplicate insert is rejected by the unique (worker_id, date)
// index and surfaces as a write failure here.
func (r *AttendanceRepository) CheckIn(ctx context.Context, workerID int64, at time.Time) (*store.AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO attendance (worker_id, date, check_in, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+attendanceColumns,
		workerID, store.Day(at), at, store.StatusPresent)
	rec, err := scanRecord(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("insert check-in: %w", err)
	}
	return rec, nil
}

// CheckOut sets check_out on an existing record. The check_out IS NULL guard
// makes repeated checkouts report ErrAlreadyCheckedOut instead of silently
// moving the timestamp.
func (r *AttendanceRepository) CheckOut(ctx context.Context, recordID int64, at time.Time) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE attendance SET check_out = $2 WHERE id = $1 AND check_out IS NULL",
		recordID, at)
	if err != nil {
		return fmt.Errorf("update check-out: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrAlreadyCheckedOut
	}
	return nil
}
