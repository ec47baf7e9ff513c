package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unowned-ai/nikki/pkg/journal"
	"github.com/unowned-ai/nikki/pkg/search"
)

type APIHandler struct {
	store  *journal.Store
	engine *search.Engine
	logger *zap.Logger
}

func NewAPIHandler(store *journal.Store, engine *search.Engine, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = search.NewEngine(search.WithLogger(logger))
	}
	return &APIHandler{store: store, engine: engine, logger: logger}
}

func (h *APIHandler) CreateEntryHandler(w http.ResponseWriter, r *http.Request) {
	var draft journal.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.store.AddEntry(r.Context(), draft)
	if err != nil {
		h.writeError(w, "creating entry", err)
		return
	}
	h.engine.ClearCache()
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// ListEntriesHandler lists all entries, or the ones selected by one of the
// tag, category or start/end query parameters.
func (h *APIHandler) ListEntriesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tag, category := q.Get("tag"), q.Get("category")
	dateRange, err := parseDateRange(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	selectors := 0
	for _, set := range []bool{tag != "", category != "", dateRange != nil} {
		if set {
			selectors++
		}
	}
	if selectors > 1 {
		http.Error(w, "Use at most one of tag, category or start/end", http.StatusBadRequest)
		return
	}

	var entries []journal.Entry
	switch {
	case tag != "":
		entries, err = h.store.GetEntriesByTag(r.Context(), tag)
	case category != "":
		c, parseErr := journal.ParseCategory(category)
		if parseErr != nil {
			http.Error(w, parseErr.Error(), http.StatusBadRequest)
			return
		}
		entries, err = h.store.GetEntriesByCategory(r.Context(), c)
	case dateRange != nil:
		entries, err = h.store.GetEntriesByDateRange(r.Context(), dateRange.Start, dateRange.End)
	default:
		entries, err = h.store.GetAllEntries(r.Context())
	}
	if err != nil {
		h.writeError(w, "listing entries", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) GetEntryHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entryID")
	entry, err := h.store.GetEntry(r.Context(), id)
	if err != nil {
		h.writeError(w, "getting entry", err)
		return
	}
	if entry == nil {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// UpdateEntryHandler applies a JSON patch. Keys that are absent keep the
// stored value; id and created_at keys are ignored.
func (h *APIHandler) UpdateEntryHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entryID")
	var patch journal.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.store.UpdateEntry(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, "updating entry", err)
		return
	}
	h.engine.ClearCache()
	writeJSON(w, http.StatusOK, updated)
}

func (h *APIHandler) DeleteEntryHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entryID")
	if err := h.store.DeleteEntry(r.Context(), id); err != nil {
		h.writeError(w, "deleting entry", err)
		return
	}
	h.engine.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

// SearchHandler ranks all entries against q and then applies the tag,
// category and start/end filters.
func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := search.FilterOptions{Tags: q["tag"]}
	if category := q.Get("category"); category != "" {
		c, err := journal.ParseCategory(category)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		opts.Category = c
	}
	dateRange, err := parseDateRange(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts.DateRange = dateRange

	entries, err := h.store.GetAllEntries(r.Context())
	if err != nil {
		h.writeError(w, "loading entries", err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Combine(entries, q.Get("q"), opts))
}

func (h *APIHandler) ListWeeklySummariesHandler(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseDateRange(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var summaries []journal.WeeklySummary
	if dateRange != nil {
		summaries, err = h.store.GetWeeklySummariesByRange(r.Context(), dateRange.Start, dateRange.End)
	} else {
		summaries, err = h.store.ListWeeklySummaries(r.Context())
	}
	if err != nil {
		h.writeError(w, "listing weekly summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *APIHandler) GetWeeklySummaryHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := h.store.GetWeeklySummary(r.Context(), chi.URLParam(r, "summaryID"))
	if err != nil {
		h.writeError(w, "getting weekly summary", err)
		return
	}
	if ws == nil {
		http.Error(w, "Weekly summary not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (h *APIHandler) PutWeeklySummaryHandler(w http.ResponseWriter, r *http.Request) {
	var ws journal.WeeklySummary
	if err := json.NewDecoder(r.Body).Decode(&ws); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	ws.ID = chi.URLParam(r, "summaryID")

	id, err := h.store.PutWeeklySummary(r.Context(), ws)
	if err != nil {
		h.writeError(w, "storing weekly summary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *APIHandler) DeleteWeeklySummaryHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteWeeklySummary(r.Context(), chi.URLParam(r, "summaryID")); err != nil {
		h.writeError(w, "deleting weekly summary", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListMonthlySummariesHandler(w http.ResponseWriter, r *http.Request) {
	var (
		summaries []journal.MonthlySummary
		err       error
	)
	if month := r.URL.Query().Get("month"); month != "" {
		summaries, err = h.store.GetMonthlySummariesByMonth(r.Context(), month)
	} else {
		summaries, err = h.store.ListMonthlySummaries(r.Context())
	}
	if err != nil {
		h.writeError(w, "listing monthly summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *APIHandler) GetMonthlySummaryHandler(w http.ResponseWriter, r *http.Request) {
	ms, err := h.store.GetMonthlySummary(r.Context(), chi.URLParam(r, "summaryID"))
	if err != nil {
		h.writeError(w, "getting monthly summary", err)
		return
	}
	if ms == nil {
		http.Error(w, "Monthly summary not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (h *APIHandler) PutMonthlySummaryHandler(w http.ResponseWriter, r *http.Request) {
	var ms journal.MonthlySummary
	if err := json.NewDecoder(r.Body).Decode(&ms); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	ms.ID = chi.URLParam(r, "summaryID")

	id, err := h.store.PutMonthlySummary(r.Context(), ms)
	if err != nil {
		h.writeError(w, "storing monthly summary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *APIHandler) DeleteMonthlySummaryHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteMonthlySummary(r.Context(), chi.URLParam(r, "summaryID")); err != nil {
		h.writeError(w, "deleting monthly summary", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps store errors onto HTTP status codes.
func (h *APIHandler) writeError(w http.ResponseWriter, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, journal.ErrInvalidCategory), errors.Is(err, journal.ErrInvalidSummary):
		status = http.StatusBadRequest
	case errors.Is(err, journal.ErrEntryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, journal.ErrWriteConflict):
		status = http.StatusConflict
	case errors.Is(err, journal.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("action", action), zap.Error(err))
	}
	http.Error(w, fmt.Sprintf("Failed %s: %v", action, err), status)
}

// parseDateRange reads the start and end query parameters. Both or neither
// must be present.
func parseDateRange(q url.Values) (*search.DateRange, error) {
	startStr, endStr := q.Get("start"), q.Get("end")
	if startStr == "" && endStr == "" {
		return nil, nil
	}
	if startStr == "" || endStr == "" {
		return nil, errors.New("start and end must be given together")
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return nil, fmt.Errorf("invalid end: %w", err)
	}
	return &search.DateRange{Start: start, End: end}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
