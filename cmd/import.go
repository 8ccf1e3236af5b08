package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/medelia/face-attendance/internal/config"
	"github.com/medelia/face-attendance/internal/store"
	"github.com/medelia/face-attendance/internal/store/legacy"
	"github.com/medelia/face-attendance/internal/store/postgres"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import-workers",
	Short: "Import staff records from the hospital management system",
	Long: `Copy staff rows from the legacy HMS MySQL database into the attendance
store. Existing workers are updated in place; enrolled face descriptors
are preserved. The HMS database is never written to.`,
	RunE: runImportWorkers,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImportWorkers(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Legacy.DatabaseDSN == "" {
		return errors.New("HMS_DATABASE_DSN environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	fmt.Printf("Connecting to HMS database...\n")
	hms, err := legacy.NewPool(cfg.Legacy.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to HMS database: %w", err)
	}
	defer hms.Close()

	ctx := context.Background()
	staff, err := hms.ListStaff(ctx)
	if err != nil {
		return fmt.Errorf("reading HMS staff: %w", err)
	}

	workerRepo := postgres.NewWorkerRepository(pool)
	imported := 0
	for _, s := range staff {
		w := store.Worker{ID: s.ID, Name: s.Name, Role: s.Role}
		if err := workerRepo.UpsertWorker(ctx, w); err != nil {
			return fmt.Errorf("importing worker %d (%s): %w", s.ID, s.Name, err)
		}
		imported++
	}

	fmt.Printf("Imported %d workers from HMS\n", imported)
	return nil
}
