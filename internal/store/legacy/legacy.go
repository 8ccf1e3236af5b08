// Package legacy reads worker records from the hospital management system's
// MySQL database. Read-only; the attendance service never writes back.
package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool manages a MySQL connection pool to the legacy HMS database.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MySQL connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("HMS database DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open HMS database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping HMS database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing HMS database connection: %w", err)
		}
	}
	return nil
}

// StaffRow is a worker record as stored in the HMS staff table.
type StaffRow struct {
	ID   int64
	Name string
	Role string
}

// ListStaff returns all staff rows from the HMS database.
func (p *Pool) ListStaff(ctx context.Context) ([]StaffRow, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT id, name, role FROM staff ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query HMS staff: %w", err)
	}
	defer rows.Close()

	var staff []StaffRow
	for rows.Next() {
		var s StaffRow
		if err := rows.Scan(&s.ID, &s.Name, &s.Role); err != nil {
			return nil, fmt.Errorf("scan HMS staff row: %w", err)
		}
		staff = append(staff, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate HMS staff rows: %w", err)
	}
	return staff, nil
}
