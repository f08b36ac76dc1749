/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the editor frontends

ROUTE GROUPS:
  /api/employees/*        Roster
  /api/weeks/*            Standard weeks per year
  /api/allocations        Project allocations
  /api/planned-changes/*  Lifecycle queue
  /api/settings           Weekly hour rates
  /api/work-codes         Work codes
  /api/forecasts/*        Recalculation and persisted rows
  /api/reports/*          Aggregated views

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are used when no CORS origins are configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
		})

		r.Route("/weeks", func(r chi.Router) {
			r.Get("/{year}", h.GetWeeks)
			r.Put("/{year}", h.PutWeeks)
		})

		r.Get("/allocations", h.ListAllocations)
		r.Put("/allocations", h.PutAllocation)

		r.Route("/planned-changes", func(r chi.Router) {
			r.Get("/", h.ListPlannedChanges)
			r.Post("/", h.CreatePlannedChange)
			r.Post("/apply-due", h.ApplyDuePlannedChanges)
			r.Put("/{id}", h.UpdatePlannedChange)
			r.Delete("/{id}", h.DeletePlannedChange)
			r.Post("/{id}/apply", h.ApplyPlannedChange)
		})

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)

		r.Get("/work-codes", h.ListWorkCodes)
		r.Post("/work-codes", h.CreateWorkCode)

		r.Route("/forecasts", func(r chi.Router) {
			r.Get("/", h.ListForecasts)
			r.Post("/recalculate", h.Recalculate)
			r.Get("/runs", h.ListRuns)
		})

		r.Get("/reports/forecast", h.ForecastReport)
	})

	return r
}
