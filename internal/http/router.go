package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/budget/internal/http/category"
	"github.com/MrJamesThe3rd/budget/internal/http/expense"
	"github.com/MrJamesThe3rd/budget/internal/http/export"
	"github.com/MrJamesThe3rd/budget/internal/http/fixedexpense"
	"github.com/MrJamesThe3rd/budget/internal/http/matching"
	"github.com/MrJamesThe3rd/budget/internal/http/settings"
	"github.com/MrJamesThe3rd/budget/internal/http/shopping"
	"github.com/MrJamesThe3rd/budget/internal/http/statement"
	"github.com/MrJamesThe3rd/budget/internal/http/stats"
)

// Handlers groups the v1 resource handlers.
type Handlers struct {
	Categories    *category.Handler
	Expenses      *expense.Handler
	Settings      *settings.Handler
	Stats         *stats.Handler
	FixedExpenses *fixedexpense.Handler
	Shopping      *shopping.Handler
	Import        *statement.Handler
	Matching      *matching.Handler
	Export        *export.Handler
}

type Options struct {
	// Authenticate resolves the user of every /api/v1 request.
	Authenticate func(http.Handler) http.Handler
	// AllowedOrigins are the CORS origins. Empty disables CORS headers.
	AllowedOrigins []string
	// Health reports whether the backing services are reachable.
	Health func(ctx context.Context) error
}

func New(h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			if err := opts.Health(r.Context()); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		if opts.Authenticate != nil {
			r.Use(opts.Authenticate)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))

			r.Route("/categories", h.Categories.Routes)
			r.Route("/expenses", h.Expenses.Routes)
			r.Route("/settings", h.Settings.Routes)
			r.Route("/fixed-expenses", h.FixedExpenses.Routes)
			r.Route("/shopping", h.Shopping.Routes)
			r.Route("/matching", h.Matching.Routes)
		})

		r.Route("/stats", h.Stats.Routes)
		r.Route("/history", h.Stats.HistoryRoutes)
		r.Route("/import", h.Import.Routes)
		r.Route("/export", h.Export.Routes)
	})

	return router
}
