// Package http exposes the analytics engine over a JSON API. Identity comes
// from X-User-ID headers set by the auth proxy in front of the service.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func New(
	users UserDirectory,
	ledger *LedgerHandler,
	recurring *RecurringHandler,
	alerts *AlertHandler,
	goals *GoalHandler,
	insights *InsightHandler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(requireUser(users))

		r.Route("/categories", ledger.CategoryRoutes)
		r.Route("/entries", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			ledger.EntryRoutes(r)
		})
		r.Route("/recurring", recurring.Routes)
		r.Route("/alerts", alerts.Routes)
		r.Route("/goals", goals.Routes)
		r.Route("/insights", insights.Routes)
	})

	return router
}
