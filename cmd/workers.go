package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/medelia/face-attendance/internal/config"
	"github.com/medelia/face-attendance/internal/store"
	"github.com/medelia/face-attendance/internal/store/postgres"
	"github.com/spf13/cobra"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List workers and their enrollment status",
	RunE:  runWorkers,
}

func init() {
	rootCmd.AddCommand(workersCmd)

	workersCmd.Flags().String("search", "", "Filter by name (case and diacritic insensitive)")
}

func runWorkers(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	workerRepo := postgres.NewWorkerRepository(pool)
	ctx := context.Background()

	var workers []store.Worker
	if search := mustGetString(cmd, "search"); search != "" {
		workers, err = workerRepo.SearchWorkers(ctx, search)
	} else {
		workers, err = workerRepo.ListWorkers(ctx)
	}
	if err != nil {
		return fmt.Errorf("listing workers: %w", err)
	}

	if len(workers) == 0 {
		fmt.Println("No workers found")
		return nil
	}

	enrolled := 0
	fmt.Printf("%-6s  %-30s  %-12s  %s\n", "ID", "NAME", "ROLE", "FACE")
	for _, w := range workers {
		face := "-"
		if w.Enrolled() {
			face = "enrolled"
			enrolled++
		}
		fmt.Printf("%-6d  %-30s  %-12s  %s\n", w.ID, w.Name, w.Role, face)
	}
	fmt.Printf("\n%d workers, %d with an enrolled face\n", len(workers), enrolled)
	return nil
}
