package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// DashboardHandler serves the combined snapshot of all three slices.
type DashboardHandler struct {
	logger *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{logger: logger}
}

// RegisterRoutes registers the dashboard handler's routes on the given mux.
func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux, withSession SessionMiddleware) {
	mux.Handle("GET /api/dashboard", route(withSession, h.Get))
}

// Get handles GET /api/dashboard
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}
	writeData(w, h.logger, http.StatusOK, d.Snapshot())
}
