//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/medelia/face-attendance/internal/config"
	"github.com/medelia/face-attendance/internal/store"
	"github.com/medelia/face-attendance/internal/vision"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testDescriptor(seed float32) []float32 {
	d := make([]float32, vision.DescriptorDim)
	for i := range d {
		d[i] = seed + float32(i)/float32(vision.DescriptorDim)
	}
	return d
}

func TestWorkerRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewWorkerRepository(pool)

	t.Run("UpsertAndGet", func(t *testing.T) {
		if err := repo.UpsertWorker(ctx, store.Worker{ID: 1, Name: "Alice Nováková", Role: "nurse"}); err != nil {
			t.Fatalf("Failed to upsert worker: %v", err)
		}

		got, err := repo.GetWorker(ctx, 1)
		if err != nil {
			t.Fatalf("Failed to get worker: %v", err)
		}
		if got.Name != "Alice Nováková" || got.Role != "nurse" {
			t.Errorf("Unexpected worker: %+v", got)
		}
		if got.Enrolled() {
			t.Error("New worker must not be enrolled")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		if _, err := repo.GetWorker(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SetAndClearDescriptor", func(t *testing.T) {
		if err := repo.SetDescriptor(ctx, 1, testDescriptor(0.1)); err != nil {
			t.Fatalf("Failed to set descriptor: %v", err)
		}

		got, err := repo.GetWorker(ctx, 1)
		if err != nil {
			t.Fatalf("Failed to get worker: %v", err)
		}
		if len(got.Descriptor) != vision.DescriptorDim {
			t.Fatalf("Expected %d-dim descriptor, got %d", vision.DescriptorDim, len(got.Descriptor))
		}

		enrolled, err := repo.ListEnrolled(ctx)
		if err != nil {
			t.Fatalf("Failed to list enrolled: %v", err)
		}
		if len(enrolled) != 1 {
			t.Errorf("Expected 1 enrolled worker, got %d", len(enrolled))
		}

		if err := repo.ClearDescriptor(ctx, 1); err != nil {
			t.Fatalf("Failed to clear descriptor: %v", err)
		}
		got, _ = repo.GetWorker(ctx, 1)
		if got.Enrolled() {
			t.Error("Descriptor should be gone after clear")
		}
	})

	t.Run("SetDescriptorMissingWorker", func(t *testing.T) {
		if err := repo.SetDescriptor(ctx, 9999, testDescriptor(0.2)); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpsertPreservesDescriptor", func(t *testing.T) {
		if err := repo.SetDescriptor(ctx, 1, testDescriptor(0.3)); err != nil {
			t.Fatalf("Failed to set descriptor: %v", err)
		}
		if err := repo.UpsertWorker(ctx, store.Worker{ID: 1, Name: "Alice N.", Role: "senior nurse"}); err != nil {
			t.Fatalf("Failed to re-upsert worker: %v", err)
		}

		got, _ := repo.GetWorker(ctx, 1)
		if got.Name != "Alice N." {
			t.Errorf("Upsert should update name, got %q", got.Name)
		}
		if !got.Enrolled() {
			t.Error("Upsert must not drop the descriptor")
		}
	})

	t.Run("SearchDiacriticInsensitive", func(t *testing.T) {
		if err := repo.UpsertWorker(ctx, store.Worker{ID: 2, Name: "Jiří Dvořák", Role: "worker"}); err != nil {
			t.Fatalf("Failed to upsert worker: %v", err)
		}

		hits, err := repo.SearchWorkers(ctx, "dvorak")
		if err != nil {
			t.Fatalf("Failed to search: %v", err)
		}
		if len(hits) != 1 || hits[0].ID != 2 {
			t.Errorf("Expected to find Jiří Dvořák, got %+v", hits)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	workers := NewWorkerRepository(pool)
	repo := NewAttendanceRepository(pool)

	if err := workers.UpsertWorker(ctx, store.Worker{ID: 1, Name: "Alice", Role: "nurse"}); err != nil {
		t.Fatalf("Failed to seed worker: %v", err)
	}

	now := time.Now()

	t.Run("CheckInOnce", func(t *testing.T) {
		rec, err := repo.CheckIn(ctx, 1, now)
		if err != nil {
			t.Fatalf("Failed to check in: %v", err)
		}
		if rec.Status != store.StatusPresent || rec.CheckOut != nil {
			t.Errorf("Unexpected record: %+v", rec)
		}

		// The unique (worker_id, date) index rejects a second check-in.
		if _, err := repo.CheckIn(ctx, 1, now.Add(time.Minute)); err == nil {
			t.Error("Second check-in on the same day must fail")
		}
	})

	t.Run("GetForDay", func(t *testing.T) {
		rec, err := repo.GetForDay(ctx, 1, now)
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if rec == nil {
			t.Fatal("Expected a record for today")
		}

		none, err := repo.GetForDay(ctx, 1, now.AddDate(0, 0, 1))
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if none != nil {
			t.Errorf("Expected nil for tomorrow, got %+v", none)
		}
	})

	t.Run("CheckOutOnce", func(t *testing.T) {
		rec, err := repo.GetForDay(ctx, 1, now)
		if err != nil || rec == nil {
			t.Fatalf("Failed to get record: %v", err)
		}

		if err := repo.CheckOut(ctx, rec.ID, now.Add(8*time.Hour)); err != nil {
			t.Fatalf("Failed to check out: %v", err)
		}
		if err := repo.CheckOut(ctx, rec.ID, now.Add(9*time.Hour)); !errors.Is(err, store.ErrAlreadyCheckedOut) {
			t.Errorf("Expected ErrAlreadyCheckedOut, got %v", err)
		}

		rec, _ = repo.GetForDay(ctx, 1, now)
		if rec.CheckOut == nil {
			t.Error("check_out should be set")
		}
	})

	t.Run("ListForWorker", func(t *testing.T) {
		records, err := repo.ListForWorker(ctx, 1, 10)
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("Expected 1 record, got %d", len(records))
		}
	})
}
