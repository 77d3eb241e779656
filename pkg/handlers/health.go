package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/config"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthResponse reports liveness and the number of live dashboards.
type HealthResponse struct {
	Status     string `json:"status"`
	Dashboards int    `json:"dashboards"`
}

// DashboardCounter reports how many dashboards are live.
type DashboardCounter interface {
	Len() int
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg        *config.Config
	dashboards DashboardCounter
	logger     *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. dashboards may be nil.
func NewHealthHandler(cfg *config.Config, dashboards DashboardCounter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, dashboards: dashboards, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "ok"}
	if h.dashboards != nil {
		response.Dashboards = h.dashboards.Len()
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "ekaya-dashboard",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
