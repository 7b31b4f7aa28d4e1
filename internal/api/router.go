package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/lumen-core/internal/auth"
	"github.com/nerrad567/lumen-core/internal/panel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Synchronization channel
	r.Get(s.wsCfg.Path, s.handleWebSocket)

	if s.metricsCfg.Enabled && s.gatherer != nil {
		r.Handle(s.metricsCfg.Path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identityMiddleware)

		r.Get("/health", s.handleHealth)
		r.Get("/system/info", s.handleSystemInfo)

		r.Route("/config", func(r chi.Router) {
			r.Get("/", s.handleGetConfig)
			r.Put("/", s.require(auth.CapSettings, "", s.handleReplaceConfig))
			r.Post("/reset", s.require(auth.CapSettings, "", s.handleResetConfig))
			r.Put("/active-layout", s.require(auth.CapSettings, "", s.handleSetActiveLayout))
		})

		r.Get("/dmx", s.handleDMX)
		r.Get("/interfaces", s.require(auth.CapSettings, "", s.handleInterfaces))

		r.Get("/state", s.handleGetState)
		r.Post("/state", s.handleUpdateState)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", s.handleListClients)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/role", s.require(auth.CapManageUsers, "", s.handleSetRole))
				r.Put("/nickname", s.handleSetNickname)
				r.Post("/approve", s.require(auth.CapManageUsers, "", s.handleApprove))
				r.Post("/deny", s.require(auth.CapManageUsers, "", s.handleDeny))
				r.Delete("/", s.require(auth.CapManageUsers, "", s.handleDeleteClient))
			})
		})

		r.Route("/dashboards/{dashboardID}/clients/{id}", func(r chi.Router) {
			r.Put("/role", s.require(auth.CapManageUsers, "dashboardID", s.handleSetRole))
			r.Delete("/role", s.require(auth.CapManageUsers, "dashboardID", s.handleClearDashboardRole))
			r.Post("/approve", s.require(auth.CapManageUsers, "dashboardID", s.handleApprove))
			r.Post("/deny", s.require(auth.CapManageUsers, "dashboardID", s.handleDeny))
		})
	})

	// Control UI (pre-built directory or embedded placeholder)
	r.Handle("/*", panel.Handler(s.cfg.UIDir))

	return r
}

// urlParam returns a chi URL parameter.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"output":  s.svc.OutputStats().Running,
	})
}
