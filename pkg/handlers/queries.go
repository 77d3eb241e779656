package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/logging"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// SubmitQueryRequest for POST /api/queries
type SubmitQueryRequest struct {
	Text string `json:"text"`
}

// SuggestionsResponse for GET /api/queries/suggestions
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// ExamplesResponse for GET /api/queries/examples
type ExamplesResponse struct {
	Examples []string `json:"examples"`
}

// ============================================================================
// Handler
// ============================================================================

// QueriesHandler handles the query slice endpoints.
type QueriesHandler struct {
	logger *zap.Logger
}

// NewQueriesHandler creates a new queries handler.
func NewQueriesHandler(logger *zap.Logger) *QueriesHandler {
	return &QueriesHandler{logger: logger}
}

// RegisterRoutes registers the queries handler's routes on the given mux.
func (h *QueriesHandler) RegisterRoutes(mux *http.ServeMux, withSession SessionMiddleware) {
	base := "/api/queries"

	mux.Handle("GET "+base, route(withSession, h.Get))
	mux.Handle("POST "+base, route(withSession, h.Submit))
	mux.Handle("DELETE "+base+"/result", route(withSession, h.ClearResults))
	mux.Handle("DELETE "+base+"/history", route(withSession, h.ClearHistory))
	mux.Handle("GET "+base+"/suggestions", route(withSession, h.Suggestions))
	mux.HandleFunc("GET "+base+"/examples", h.Examples)
}

// Get handles GET /api/queries
func (h *QueriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}
	writeData(w, h.logger, http.StatusOK, d.Queries())
}

// Submit handles POST /api/queries
// Responds 202 with the state after the synchronous transition into loading.
func (h *QueriesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}

	var req SubmitQueryRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	// Trimming only guards against blank input; the text is submitted as typed.
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "missing_text", "Query text is required")
		return
	}

	if _, err := d.SubmitQuery(req.Text); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrQueryPending):
			writeError(w, h.logger, http.StatusConflict, "query_pending", "A query is already being processed")
		case errors.Is(err, apperrors.ErrClosed):
			writeError(w, h.logger, http.StatusServiceUnavailable, "session_unavailable", "Dashboard session unavailable")
		default:
			h.logger.Error("Failed to submit query",
				zap.String("dashboard_id", d.ID()),
				zap.String("query", logging.TruncateQuery(req.Text)),
				zap.Error(err))
			writeError(w, h.logger, http.StatusInternalServerError, "submit_query_failed", err.Error())
		}
		return
	}

	writeData(w, h.logger, http.StatusAccepted, d.Queries())
}

// ClearResults handles DELETE /api/queries/result
func (h *QueriesHandler) ClearResults(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}
	d.ClearResults()
	writeData(w, h.logger, http.StatusOK, d.Queries())
}

// ClearHistory handles DELETE /api/queries/history
func (h *QueriesHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}
	d.ClearHistory()
	writeData(w, h.logger, http.StatusOK, d.Queries())
}

// Suggestions handles GET /api/queries/suggestions?q=
func (h *QueriesHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}
	writeData(w, h.logger, http.StatusOK, SuggestionsResponse{
		Suggestions: d.Suggestions(r.URL.Query().Get("q")),
	})
}

// Examples handles GET /api/queries/examples
func (h *QueriesHandler) Examples(w http.ResponseWriter, r *http.Request) {
	examples := append([]string{}, services.ExampleQueries...)
	writeData(w, h.logger, http.StatusOK, ExamplesResponse{Examples: examples})
}
