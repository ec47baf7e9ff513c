package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(h.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/entries", func(r chi.Router) {
		r.Post("/", h.CreateEntryHandler)
		r.Get("/", h.ListEntriesHandler)
		r.Get("/{entryID}", h.GetEntryHandler)
		r.Patch("/{entryID}", h.UpdateEntryHandler)
		r.Delete("/{entryID}", h.DeleteEntryHandler)
	})

	r.Get("/search", h.SearchHandler)

	r.Route("/summaries", func(r chi.Router) {
		r.Get("/weekly", h.ListWeeklySummariesHandler)
		r.Get("/weekly/{summaryID}", h.GetWeeklySummaryHandler)
		r.Put("/weekly/{summaryID}", h.PutWeeklySummaryHandler)
		r.Delete("/weekly/{summaryID}", h.DeleteWeeklySummaryHandler)

		r.Get("/monthly", h.ListMonthlySummariesHandler)
		r.Get("/monthly/{summaryID}", h.GetMonthlySummaryHandler)
		r.Put("/monthly/{summaryID}", h.PutMonthlySummaryHandler)
		r.Delete("/monthly/{summaryID}", h.DeleteMonthlySummaryHandler)
	})

	return r
}
