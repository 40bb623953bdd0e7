package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kentandrian/vertexai-demos/internal/api/middleware"
	"github.com/kentandrian/vertexai-demos/internal/bigquery"
)

// RunLister reads recorded claim runs.
type RunLister interface {
	ListRuns(ctx context.Context, filter bigquery.RunFilter) ([]*bigquery.ClaimRunRow, error)
	ListClaimItems(ctx context.Context, runID string) ([]*bigquery.ClaimItemRow, error)
}

// RunsHandler serves the BigQuery run history.
type RunsHandler struct {
	repo RunLister
}

// NewRunsHandler creates a runs handler. With a nil repo every call returns 503.
func NewRunsHandler(repo RunLister) *RunsHandler {
	return &RunsHandler{repo: repo}
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Run recording is not configured")
		return
	}

	query := r.URL.Query()
	runs, err := h.repo.ListRuns(r.Context(), bigquery.RunFilter{
		Status: strings.ToUpper(query.Get("status")),
		Limit:  intParam(query.Get("limit")),
	})
	if err != nil {
		writeErr(w, r, err, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []*bigquery.ClaimRunRow{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// ListItems handles GET /api/runs/{id}/items
func (h *RunsHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Run recording is not configured")
		return
	}

	items, err := h.repo.ListClaimItems(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err, "Failed to list claim items")
		return
	}
	if items == nil {
		items = []*bigquery.ClaimItemRow{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}
