package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/medelia/face-attendance/internal/config"
	"github.com/medelia/face-attendance/internal/gallery"
	"github.com/medelia/face-attendance/internal/store/postgres"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect the face gallery",
}

var galleryVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify that every enrolled descriptor matches back to its own worker",
	Long: `Build the matcher exactly the way a scanner session does and probe it
with every enrolled descriptor. Each descriptor must resolve to its own
worker at distance ~0; a collision means two workers have nearly
identical descriptors and scans may be attributed to the wrong person.`,
	RunE: runGalleryVerify,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryVerifyCmd)
}

func runGalleryVerify(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Loading gallery (threshold %.2f)...\n", cfg.Scanner.MatchThreshold)
	g, err := gallery.Load(ctx, workerRepo, cfg.Scanner.MatchThreshold)
	if err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}
	if g.Empty() {
		fmt.Println("No enrolled faces to verify")
		return nil
	}

	enrolled, err := workerRepo.ListEnrolled(ctx)
	if err != nil {
		return fmt.Errorf("listing enrolled workers: %w", err)
	}

	bar := progressbar.Default(int64(len(enrolled)), "verifying")
	collisions := 0
	unmatched := 0
	for _, w := range enrolled {
		result := g.Match(w.Descriptor)
		switch {
		case result.Outcome != gallery.OutcomeMatch:
			unmatched++
			fmt.Printf("\nworker %d (%s): own descriptor does not match anything (distance %.3f)\n",
				w.ID, w.Name, result.Distance)
		case result.WorkerID != w.ID:
			collisions++
			fmt.Printf("\nworker %d (%s): descriptor resolves to %s (distance %.3f)\n",
				w.ID, w.Name, result.Name, result.Distance)
		}
		_ = bar.Add(1)
	}

	fmt.Printf("\n%d descriptors in the gallery, %d malformed rows skipped\n", g.Count(), g.Skipped())
	if collisions == 0 && unmatched == 0 {
		fmt.Println("All descriptors verified")
		return nil
	}
	return fmt.Errorf("%d collisions, %d unmatched descriptors", collisions, unmatched)
}
