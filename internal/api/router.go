package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"audiototext-backend/internal/api/handlers"
	"audiototext-backend/internal/api/middleware"
	"audiototext-backend/internal/config"
	"audiototext-backend/internal/job"
)

type Router struct {
	mux   *chi.Mux
	store *job.Store
	cfg   *config.Config
}

func NewRouter(store *job.Store, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		store: store,
		cfg:   cfg,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(10, 20)
	r.Use(rl.Limit)

	// Health endpoints
	health := handlers.NewHealthHandler(rt.cfg.Upload.TempDir)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	jobsH := handlers.NewJobsHandler(rt.store, rt.cfg.Upload)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", jobsH.Submit)
			r.Get("/{id}", jobsH.Status)
		})
	})

	return r
}
