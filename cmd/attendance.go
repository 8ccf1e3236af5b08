package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medelia/face-attendance/internal/config"
	"github.com/medelia/face-attendance/internal/store"
	"github.com/medelia/face-attendance/internal/store/postgres"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show attendance records",
	Long: `Show attendance records for a day (default today), or a single
worker's history with --worker.`,
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("date", "", "Day to list (YYYY-MM-DD, default today)")
	attendanceCmd.Flags().Int64("worker", 0, "List one worker's history instead of a day")
	attendanceCmd.Flags().Int("limit", 50, "Maximum records for --worker history")
}

func runAttendance(cmd *cobra.Command, args []string) error {
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
	attendanceRepo := postgres.NewAttendanceRepository(pool)
	ctx := context.Background()

	var records []store.AttendanceRecord
	if workerID := mustGetInt64(cmd, "worker"); workerID > 0 {
		records, err = attendanceRepo.ListForWorker(ctx, workerID, mustGetInt(cmd, "limit"))
		if err != nil {
			return fmt.Errorf("listing attendance: %w", err)
		}
	} else {
		date := time.Now()
		if d := mustGetString(cmd, "date"); d != "" {
			date, err = time.ParseInLocation("2006-01-02", d, time.Local)
			if err != nil {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", d)
			}
		}
		records, err = attendanceRepo.ListForDay(ctx, date)
		if err != nil {
			return fmt.Errorf("listing attendance: %w", err)
		}
		fmt.Printf("Attendance for %s\n\n", store.Day(date).Format("2006-01-02"))
	}

	if len(records) == 0 {
		fmt.Println("No records")
		return nil
	}

	names := map[int64]string{}
	fmt.Printf("%-6s  %-30s  %-12s  %-10s  %s\n", "ID", "WORKER", "DATE", "IN", "OUT")
	for _, rec := range records {
		name, ok := names[rec.WorkerID]
		if !ok {
			if w, err := workerRepo.GetWorker(ctx, rec.WorkerID); err == nil {
				name = w.Name
			} else {
				name = fmt.Sprintf("worker %d", rec.WorkerID)
			}
			names[rec.WorkerID] = name
		}
		out := "-"
		if rec.CheckOut != nil {
			out = rec.CheckOut.Local().Format("15:04:05")
		}
		fmt.Printf("%-6d  %-30s  %-12s  %-10s  %s\n",
			rec.ID, name, rec.Date.Format("2006-01-02"), rec.CheckIn.Local().Format("15:04:05"), out)
	}
	return nil
}
