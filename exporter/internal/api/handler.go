package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pteroexporter/pteroexporter/pkg/types"
)

// Refresher runs refresh cycles. Implemented by *collector.Collector.
type Refresher interface {
	Refresh(ctx context.Context) (*types.CycleSummary, error)
	Last() *types.CycleSummary
}

// Handler is the HTTP handler for all exporter routes.
type Handler struct {
	refresher Refresher
	exposer   http.Handler
	mux       *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(r Refresher, g prometheus.Gatherer) http.Handler {
	h := &Handler{
		refresher: r,
		// Partial gathers are served; gather and encode errors are logged.
		exposer: promhttp.HandlerFor(g, promhttp.HandlerOpts{
			ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
			ErrorHandling: promhttp.ContinueOnError,
		}),
		mux: http.NewServeMux(),
	}

	h.mux.HandleFunc("/metrics", h.metrics)
	h.mux.HandleFunc("/healthz", h.healthz)
	h.mux.HandleFunc("/api/v1/status", h.status)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// metrics serves GET /metrics: refresh, then expose the gathered families.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := h.refresher.Refresh(r.Context()); err != nil {
		slog.Error("api: refresh failed", "err", err)
		http.Error(w, fmt.Sprintf("refresh failed: %v", err), http.StatusInternalServerError)
		return
	}

	h.exposer.ServeHTTP(w, r)
}

// healthz serves GET /healthz.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// status serves the last cycle summary as JSON.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, toStatusResponse(h.refresher.Last()))
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// toStatusResponse maps a cycle summary to its JSON representation.
func toStatusResponse(sum *types.CycleSummary) StatusResponse {
	if sum == nil {
		return StatusResponse{State: "unknown", FailedIDs: []string{}}
	}

	resp := StatusResponse{
		State:      "ok",
		CycleID:    sum.ID,
		Started:    sum.Started.UTC().Format(time.RFC3339),
		DurationMs: sum.Duration.Milliseconds(),
		Pages:      sum.Pages,
		Servers:    sum.Servers,
		Succeeded:  sum.Succeeded,
		Failed:     sum.Failed,
		FailedIDs:  sum.FailedIDs,
	}
	if resp.FailedIDs == nil {
		resp.FailedIDs = []string{}
	}
	switch {
	case sum.Err != nil:
		resp.State = "failed"
		resp.Error = sum.Err.Error()
	case sum.Failed > 0:
		resp.State = "degraded"
	}
	return resp
}
