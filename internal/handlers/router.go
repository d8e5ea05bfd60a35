package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ipo_applier/internal/middleware"
)

// DefaultReportCacheTTL is how long latest reports stay cached between runs.
const DefaultReportCacheTTL = 5 * time.Minute

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	APIKey         string
	AllowedOrigins []string
	ReportCacheTTL time.Duration
}

// Router is the HTTP handler of the reporting API.
type Router struct {
	chi.Router
	reports *ReportsHandler
}

// InvalidateReports drops cached report responses.
func (rt *Router) InvalidateReports() {
	rt.reports.Invalidate()
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps *Dependencies, cfg RouterConfig) *Router {
	if cfg.ReportCacheTTL <= 0 {
		cfg.ReportCacheTTL = DefaultReportCacheTTL
	}

	runsHandler := NewRunsHandler(deps)
	reportsHandler := NewReportsHandler(deps, cfg.ReportCacheTTL)

	r := chi.NewRouter()

	// Chi middleware (aliased as chimw to avoid conflict with our middleware package)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewCORS(cfg.AllowedOrigins).Handler)
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.LimitAPI)
		r.Use(middleware.APIKey(cfg.APIKey))

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", runsHandler.List)
			r.With(middleware.LimitStrict).Post("/", runsHandler.Trigger)
			r.With(middleware.ValidateRunID).Get("/{id}", runsHandler.Get)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", reportsHandler.Latest)
			r.Route("/{account}", func(r chi.Router) {
				r.Use(middleware.ValidateAccountName)
				r.Get("/", reportsHandler.Get)
				r.Get("/qr", reportsHandler.QR)
			})
		})
	})

	return &Router{Router: r, reports: reportsHandler}
}

// handleHealth returns the server health status.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}
