package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/medelia/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	scannerHandler := handlers.NewScannerHandler(s.deps.Manager)
	workersHandler := handlers.NewWorkersHandler(s.deps.Workers)
	enrollHandler := handlers.NewEnrollHandler(s.deps.Enroller, s.deps.NewSnapshot)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Attendance)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Scanner session lifecycle
		r.Post("/scanner/start", scannerHandler.Start)
		r.Post("/scanner/stop", scannerHandler.Stop)
		r.Get("/scanner/status", scannerHandler.Status)
		r.Get("/scanner/events", scannerHandler.Events)

		// Workers
		r.Get("/workers", workersHandler.List)
		r.Get("/workers/{id}", workersHandler.Get)
		r.Post("/workers/{id}/face", enrollHandler.Enroll)
		r.Delete("/workers/{id}/face", enrollHandler.Clear)
		r.Get("/workers/{id}/attendance", attendanceHandler.ListWorker)

		// Attendance
		r.Get("/attendance", attendanceHandler.ListDay)
	})
}
