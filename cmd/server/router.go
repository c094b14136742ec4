package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openpulpit/sermon-api/internal/api"
	apiMiddleware "github.com/openpulpit/sermon-api/internal/api/middleware"
)

// setupRouter configures all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(&app.config.Auth, app.tokenService, app.passwordVerifier)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.tokenService)
	queueHandler := api.NewQueueHandler(app.queueService)
	workerHandler := api.NewWorkerHandler(app.queueService)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/auth/login", authHandler.Login)

		// Dispatch trigger, authenticated with a machine secret so a cron
		// job can fire it.
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.RequireSecret(app.config.Trigger.Secret))
			r.Post("/queue/trigger", queueHandler.Process)
		})

		// Worker callbacks, authenticated with the worker shared secret.
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.RequireSecret(app.config.Worker.SharedSecret))
			r.Get("/worker/jobs/{jobID}", workerHandler.JobStatus)
			r.Post("/worker/chunk", workerHandler.Chunk)
			r.Post("/worker/complete", workerHandler.Complete)
			r.Post("/worker/fail", workerHandler.Fail)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/queue", queueHandler.List)
			r.Post("/queue/add", queueHandler.Add)
			r.Post("/queue/cancel", queueHandler.Cancel)
			r.Post("/queue/clear-chunks", queueHandler.ClearChunks)
			r.Post("/queue/process", queueHandler.Process)

			if app.summarizer != nil {
				summaryHandler := api.NewSummaryHandler(app.summarizer)
				r.Post("/sermons/{id}/summarize", summaryHandler.Summarize)
			}
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
