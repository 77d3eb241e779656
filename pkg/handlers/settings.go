package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
)

// SettingsHandler handles the settings slice endpoints.
type SettingsHandler struct {
	logger *zap.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{logger: logger}
}

// RegisterRoutes registers the settings handler's routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux, withSession SessionMiddleware) {
	base := "/api/settings"

	mux.Handle("GET "+base, route(withSession, h.Get))
	mux.Handle("PATCH "+base, route(withSession, h.Update))
	mux.Handle("POST "+base+"/reset", route(withSession, h.Reset))
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}
	writeData(w, h.logger, http.StatusOK, d.Settings())
}

// Update handles PATCH /api/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.SettingsPatch
	if !decodeBody(w, r, h.logger, &patch) {
		return
	}

	if field := patch.Validate(); field != "" {
		err := fmt.Errorf("%w: %s", apperrors.ErrInvalidSetting, field)
		writeError(w, h.logger, http.StatusBadRequest, "invalid_setting", err.Error())
		return
	}

	writeData(w, h.logger, http.StatusOK, d.UpdateSettings(patch))
}

// Reset handles POST /api/settings/reset
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}
	writeData(w, h.logger, http.StatusOK, d.ResetSettings())
}
