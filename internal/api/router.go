package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/MimoJanra/AuditPulse/docs"
)

func SetupRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.Health)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Post("/register", s.Register)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/dashboard", s.Dashboard)
		r.Post("/audits", s.RunAudit)

		r.Route("/reports/{id}", func(r chi.Router) {
			r.Get("/", s.ViewReport)
			r.Get("/pdf", s.DownloadReport)
		})

		r.Route("/schedule", func(r chi.Router) {
			r.Post("/", s.Schedule)
			r.Delete("/", s.Unschedule)
		})

		r.Get("/admin", s.Admin)
	})

	return r
}
