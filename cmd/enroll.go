package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/medelia/face-attendance/internal/camera"
	"github.com/medelia/face-attendance/internal/config"
	"github.com/medelia/face-attendance/internal/enroll"
	"github.com/medelia/face-attendance/internal/store"
	"github.com/medelia/face-attendance/internal/store/postgres"
	"github.com/medelia/face-attendance/internal/vision"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <worker-id>",
	Short: "Enroll a worker's face",
	Long: `Capture one face for a worker and store its descriptor, replacing any
previously enrolled face. The frame comes from --image, or from the
snapshot camera (CAMERA_SNAPSHOT_URL) when no image is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("image", "", "Path to an image file instead of a camera capture")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	workerID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || workerID <= 0 {
		return fmt.Errorf("invalid worker id %q", args[0])
	}

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
	visionClient := vision.NewClient(cfg.Vision.URL, cfg.Vision.Dim)
	service := enroll.NewService(visionClient, workerRepo)

	ctx := context.Background()
	imagePath := mustGetString(cmd, "image")

	var worker *store.Worker
	switch {
	case imagePath != "":
		frame, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}
		worker, err = service.EnrollFrame(ctx, workerID, frame)
		if err != nil {
			return enrollError(err)
		}
	case cfg.Camera.SnapshotURL != "":
		fmt.Printf("Capturing frame from %s...\n", cfg.Camera.SnapshotURL)
		worker, err = service.EnrollFromCamera(ctx, camera.NewSnapshotSource(cfg.Camera.SnapshotURL), workerID)
		if err != nil {
			return enrollError(err)
		}
	default:
		return errors.New("provide --image or set CAMERA_SNAPSHOT_URL")
	}

	fmt.Printf("Enrolled %s (worker %d, %d-dim descriptor)\n", worker.Name, worker.ID, len(worker.Descriptor))
	return nil
}

func enrollError(err error) error {
	switch {
	case errors.Is(err, enroll.ErrNoFace):
		return errors.New("no face detected in the frame; nothing was stored")
	case errors.Is(err, store.ErrNotFound):
		return errors.New("worker not found; import or create it first")
	default:
		return fmt.Errorf("enrollment failed: %w", err)
	}
}
