/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/lenders/*        Lender management
  /api/planned/*        Planned transaction templates + materialization
  /api/occurrences/*    Calendar occurrences and lifecycle actions
  /api/loans/*          Loans, schedules, transfers
  /api/payments/*       Payment lifecycle actions
  /api/statistics       Range statistics
  /api/exposure         Per-holder outstanding totals
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Lender routes
		r.Route("/lenders", func(r chi.Router) {
			r.Get("/", h.ListLenders)
			r.Post("/", h.CreateLender)
			r.Get("/{id}", h.GetLender)
		})

		// Planned transaction routes
		r.Route("/planned", func(r chi.Router) {
			r.Get("/", h.ListPlanned)
			r.Post("/", h.CreatePlanned)
			r.Get("/{id}", h.GetPlanned)
			r.Post("/{id}/materialize", h.MaterializeOccurrences)
		})

		// Occurrence routes
		r.Route("/occurrences", func(r chi.Router) {
			r.Get("/", h.ListOccurrences)
			r.Get("/pending", h.ListPendingOccurrences)
			r.Post("/{id}/execute", h.ExecuteOccurrence)
			r.Post("/{id}/skip", h.SkipOccurrence)
		})

		// Loan routes
		r.Route("/loans", func(r chi.Router) {
			r.Get("/", h.ListLoans)
			r.Post("/", h.CreateLoan)
			r.Get("/{id}", h.GetLoan)
			r.Post("/{id}/schedule", h.GenerateSchedule)
			r.Get("/{id}/payments", h.ListPayments)
			r.Get("/{id}/balance", h.GetBalance)
			r.Post("/{id}/transfers", h.TransferDebt)
			r.Get("/{id}/transfers", h.ListTransfers)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Get("/overdue", h.ListOverduePayments)
			r.Post("/{id}/execute", h.ExecutePayment)
			r.Post("/{id}/skip", h.SkipPayment)
		})

		// Read-side routes
		r.Get("/statistics", h.GetStatistics)
		r.Get("/exposure", h.GetExposure)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Obligation Scheduling Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Obligation Scheduling Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/lenders">/api/lenders</a> - List lenders</li>
<li><a href="/api/planned">/api/planned</a> - List planned transactions</li>
<li><a href="/api/loans">/api/loans</a> - List loans</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
