package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medelia/face-attendance/internal/camera"
	"github.com/medelia/face-attendance/internal/config"
	"github.com/medelia/face-attendance/internal/enroll"
	"github.com/medelia/face-attendance/internal/scanner"
	"github.com/medelia/face-attendance/internal/store/postgres"
	"github.com/medelia/face-attendance/internal/vision"
	"github.com/medelia/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance web service",
	Long: `Start the Face Attendance web service.
The service exposes the scanner session lifecycle, worker enrollment and
attendance records over HTTP for the kiosk frontend.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Camera.StreamURL == "" {
		return errors.New("CAMERA_STREAM_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	fmt.Printf("Applying database migrations...\n")
	if err := pool.Migrate(context.Background()); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	workerRepo := postgres.NewWorkerRepository(pool)
	attendanceRepo := postgres.NewAttendanceRepository(pool)
	visionClient := vision.NewClient(cfg.Vision.URL, cfg.Vision.Dim)

	manager := scanner.NewManager(cfg.Scanner,
		func() camera.FrameSource { return camera.NewMJPEGSource(cfg.Camera.StreamURL) },
		visionClient, workerRepo, attendanceRepo)
	enroller := enroll.NewService(visionClient, workerRepo)

	var newSnapshot func() camera.FrameSource
	if cfg.Camera.SnapshotURL != "" {
		newSnapshot = func() camera.FrameSource { return camera.NewSnapshotSource(cfg.Camera.SnapshotURL) }
		fmt.Printf("Snapshot enrollment enabled (%s)\n", cfg.Camera.SnapshotURL)
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, host, port, web.Deps{
		Manager:     manager,
		Enroller:    enroller,
		Workers:     workerRepo,
		Attendance:  attendanceRepo,
		NewSnapshot: newSnapshot,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance service on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
