package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/otis-tran/demo-service/internal/api"
	apiMiddleware "github.com/otis-tran/demo-service/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	syncHandler := api.NewSyncHandler(app.syncService)
	workHandler := api.NewWorkHandler(app.eventEmitter, app.scheduler, app.taskStore)
	connectivityHandler := api.NewConnectivityHandler(app.monitor)
	calculatorHandler := api.NewCalculatorHandler(app.calculator)
	playbackHandler := api.NewPlaybackHandler(app.playback)

	r.Route("/api", func(r chi.Router) {
		// Fire-and-forget sync
		r.Post("/sync", syncHandler.StartSync)
		r.Get("/sync", syncHandler.GetSync)

		// Deferred work
		r.Post("/work", workHandler.CreateWork)
		r.Get("/work/{id}", workHandler.GetWork)
		r.Delete("/work/{id}", workHandler.CancelWork)

		// Host connectivity signal
		r.Get("/connectivity", connectivityHandler.GetConnectivity)
		r.Put("/connectivity", connectivityHandler.SetConnectivity)

		// Bound calculator
		r.Post("/calculator/bind", calculatorHandler.Bind)
		r.Delete("/calculator/{id}", calculatorHandler.Unbind)
		r.Post("/calculator/{id}/{op}", calculatorHandler.Operate)

		// Foreground playback
		r.Get("/playback", playbackHandler.GetPlayback)
		r.Get("/playback/notifications", app.hub.ServeHTTP)
		r.Post("/playback", playbackHandler.Command)
		r.Post("/playback/{command}", playbackHandler.Command)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
