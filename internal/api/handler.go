// Package api serves the optimizer pipeline over HTTP: workload routing
// and execution, the live summary catalog, routing stats, and per-run
// history.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"duck-rollup/internal/domain"
	"duck-rollup/internal/middleware"
	"duck-rollup/internal/service"
	"duck-rollup/internal/workload"
)

// StatsSource computes fresh main-table statistics for an analyze pass.
// *loader.Loader satisfies it.
type StatsSource interface {
	Stats(ctx context.Context) (*domain.TableStats, error)
}

// HandlerConfig holds the parameters needed to build the API handler.
type HandlerConfig struct {
	Runner    *service.Runner
	Stats     StatsSource
	History   domain.RunHistoryStore // optional
	MainTable string
	Logger    *slog.Logger
}

// Handler serves the /v1 API surface.
type Handler struct {
	runner    *service.Runner
	stats     StatsSource
	history   domain.RunHistoryStore
	mainTable string
	logger    *slog.Logger
}

// NewHandler creates a Handler from its dependencies.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runner:    cfg.Runner,
		stats:     cfg.Stats,
		history:   cfg.History,
		mainTable: cfg.MainTable,
		logger:    logger,
	}
}

// Routes assembles the chi router for the API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/route", h.routeWorkload)
		r.Post("/run", h.runWorkload)
		r.Get("/catalog", h.catalog)
		r.Get("/stats", h.routingStats)
		r.Get("/runs/{runID}", h.runHistory)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// routeWorkload routes a workload against the current catalog without
// executing anything.
func (h *Handler) routeWorkload(w http.ResponseWriter, r *http.Request) {
	wl, ok := h.decodeWorkload(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"routes": h.runner.Explain(wl.Queries),
	})
}

// runWorkload drives the full pipeline for the posted workload and
// returns the run report with inline results.
func (h *Handler) runWorkload(w http.ResponseWriter, r *http.Request) {
	wl, ok := h.decodeWorkload(w, r)
	if !ok {
		return
	}

	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, fmt.Errorf("compute table statistics: %w", err))
		return
	}

	report, err := h.runner.Run(r.Context(), wl.Queries, stats, service.RunOptions{IncludeResults: true})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) catalog(w http.ResponseWriter, _ *http.Request) {
	specs := h.runner.Catalog()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(specs),
		"specs": specs,
	})
}

func (h *Handler) routingStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.runner.StatsSnapshot())
}

// runRecordJSON is the wire form of a run-history record. Duration is
// rendered in milliseconds to match run reports.
type runRecordJSON struct {
	QueryID    string    `json:"query_id"`
	Routed     bool      `json:"routed"`
	Target     string    `json:"target,omitempty"`
	SQL        string    `json:"sql,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	RowCount   int       `json:"row_count"`
	DurationMS int64     `json:"duration_ms"`
	ExecutedAt time.Time `json:"executed_at"`
}

func (h *Handler) runHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, r, domain.ErrNotFound("run history is not enabled"))
		return
	}

	runID := chi.URLParam(r, "runID")
	recs, err := h.history.ListByRun(r.Context(), runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(recs) == 0 {
		h.writeError(w, r, domain.ErrNotFound("run %q not found", runID))
		return
	}

	queries := make([]runRecordJSON, 0, len(recs))
	for _, rec := range recs {
		queries = append(queries, runRecordJSON{
			QueryID:    rec.QueryID,
			Routed:     rec.Routed,
			Target:     rec.Target,
			SQL:        rec.SQL,
			Status:     rec.Status,
			Error:      rec.Error,
			RowCount:   rec.RowCount,
			DurationMS: rec.Duration.Milliseconds(),
			ExecutedAt: rec.ExecutedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":  runID,
		"queries": queries,
	})
}

// decodeWorkload reads and decodes the request body as a JSON workload.
// On failure it writes the error response and returns ok false.
func (h *Handler) decodeWorkload(w http.ResponseWriter, r *http.Request) (*workload.Workload, bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, domain.ErrValidation("read request body: %v", err))
		return nil, false
	}

	wl, err := workload.Parse(data, h.mainTable)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return wl, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]interface{}{
		"error":      err.Error(),
		"request_id": middleware.RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
