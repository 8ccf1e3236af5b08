package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/medelia/face-attendance/internal/store"
	"github.com/pgvector/pgvector-go"
)

// WorkerRepository provides PostgreSQL-backed worker storage.
type WorkerRepository struct {
	pool *Pool
}

// NewWorkerRepository creates a new PostgreSQL worker repository.
func NewWorkerRepository(pool *Pool) *WorkerRepository {
	return &WorkerRepository{pool: pool}
}

const workerColumns = "id, name, role, face_descriptor, created_at"

// scanWorker scans a single worker row, converting the nullable pgvector
// column into a nil-able descriptor slice.
func scanWorker(scan func(dest ...any) error) (*store.Worker, error) {
	var w store.Worker
	var vec sql.Null[pgvector.Vector]
	if err := scan(&w.ID, &w.Name, &w.Role, &vec, &w.CreatedAt); err != nil {
		return nil, err
	}
	if vec.Valid {
		w.Descriptor = vec.V.Slice()
	}
	return &w, nil
}

func scanWorkers(rows *sql.Rows) ([]store.Worker, error) {
	var workers []store.Worker
	for rows.Next() {
		w, err := scanWorker(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		workers = append(workers, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workers: %w", err)
	}
	return workers, nil
}

// GetWorker returns the worker or store.ErrNotFound.
func (r *WorkerRepository) GetWorker(ctx context.Context, id int64) (*store.Worker, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+workerColumns+" FROM workers WHERE id = $1", id)
	w, err := scanWorker(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query worker: %w", err)
	}
	return w, nil
}

// ListWorkers returns all workers ordered by name.
func (r *WorkerRepository) ListWorkers(ctx context.Context) ([]store.Worker, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+workerColumns+" FROM workers ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	defer rows.Close()
	return scanWorkers(rows)
}

// SearchWorkers returns workers whose name matches the query, ignoring case
// and diacritics. The SQL normalization mirrors store.NormalizeWorkerName.
func (r *WorkerRepository) SearchWorkers(ctx context.Context, name string) ([]store.Worker, error) {
	normalized := store.NormalizeWorkerName(name)
	query := `
		SELECT ` + workerColumns + `
		FROM workers
		WHERE LOWER(REPLACE(unaccent(name), '-', ' ')) LIKE '%' || $1 || '%'
		ORDER BY name, id
	`
	rows, err := r.pool.Query(ctx, query, normalized)
	if err != nil {
		return nil, fmt.Errorf("search workers: %w", err)
	}
	defer rows.Close()
	return scanWorkers(rows)
}

// ListEnrolled returns only workers with a stored descriptor.
func (r *WorkerRepository) ListEnrolled(ctx context.Context) ([]store.Worker, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+workerColumns+" FROM workers WHERE face_descriptor IS NOT NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query enrolled workers: %w", err)
	}
	defer rows.Close()
	return scanWorkers(rows)
}

// SetDescriptor overwrites the worker's stored descriptor.
func (r *WorkerRepository) SetDescriptor(ctx context.Context, id int64, descriptor []float32) error {
	vec := pgvector.NewVector(descriptor)
	result, err := r.pool.Exec(ctx,
		"UPDATE workers SET face_descriptor = $2 WHERE id = $1", id, vec)
	if err != nil {
		return fmt.Errorf("update descriptor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ClearDescriptor removes the worker's descriptor.
func (r *WorkerRepository) ClearDescriptor(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE workers SET face_descriptor = NULL WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("clear descriptor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpsertWorker inserts or updates a worker row by id. The descriptor column
// is untouched on update so re-imports never wipe enrollments.
func (r *WorkerRepository) UpsertWorker(ctx context.Context, w store.Worker) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO workers (id, name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role
	`, w.ID, w.Name, w.Role)
	if err != nil {
		return fmt.Errorf("upsert worker: %w", err)
	}
	return nil
}
