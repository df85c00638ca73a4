package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/jkratochvil/facemark/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	identifyHandler := handlers.NewIdentifyHandler(s.deps.Identifier, s.deps.Resolver, s.deps.Repo)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Resolver, s.deps.Repo)
	studentsHandler := handlers.NewStudentsHandler(s.deps.Repo, s.deps.Enroller)
	trainHandler := handlers.NewTrainHandler(s.deps.Trainer)
	scheduleHandler := handlers.NewScheduleHandler(s.deps.Repo)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/identify", identifyHandler.Identify)
		r.Get("/detections", identifyHandler.ListDetections)

		r.Post("/train", trainHandler.Train)

		r.Get("/attendance", attendanceHandler.List)
		r.Post("/attendance/manual", attendanceHandler.CreateManual)
		r.Post("/attendance/bulk", attendanceHandler.BulkImport)
		r.Post("/attendance/absentees", attendanceHandler.MarkAbsentees)

		r.Get("/students", studentsHandler.List)
		r.Post("/students", studentsHandler.Create)
		r.Post("/students/{code}/photos", studentsHandler.AddPhoto)

		r.Get("/schedule", scheduleHandler.List)
		r.Post("/schedule/import", scheduleHandler.Import)
	})
}
