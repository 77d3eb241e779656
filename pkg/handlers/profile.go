package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
)

// UpdateNotificationRequest for PUT /api/profile/notifications/{name}
type UpdateNotificationRequest struct {
	Enabled bool `json:"enabled"`
}

// UpdateNotificationResponse reports whether a preference with that name existed.
type UpdateNotificationResponse struct {
	Updated bool        `json:"updated"`
	Profile models.User `json:"profile"`
}

// ProfileHandler handles the profile slice endpoints.
type ProfileHandler struct {
	logger *zap.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{logger: logger}
}

// RegisterRoutes registers the profile handler's routes on the given mux.
func (h *ProfileHandler) RegisterRoutes(mux *http.ServeMux, withSession SessionMiddleware) {
	base := "/api/profile"

	mux.Handle("GET "+base, route(withSession, h.Get))
	mux.Handle("PATCH "+base, route(withSession, h.Update))
	mux.Handle("POST "+base+"/activity", route(withSession, h.AddActivity))
	mux.Handle("PUT "+base+"/notifications/{name}", route(withSession, h.UpdateNotification))
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}
	writeData(w, h.logger, http.StatusOK, d.Profile())
}

// Update handles PATCH /api/profile
// Fields absent from the body are left untouched.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.UserPatch
	if !decodeBody(w, r, h.logger, &patch) {
		return
	}
	if patch.NotificationPreferences != nil {
		if name := models.DuplicatePreferenceName(*patch.NotificationPreferences); name != "" {
			writeError(w, h.logger, http.StatusBadRequest, "duplicate_notification_preference",
				fmt.Sprintf("Notification preference %q is listed more than once", name))
			return
		}
	}

	writeData(w, h.logger, http.StatusOK, d.UpdateProfile(patch))
}

// AddActivity handles POST /api/profile/activity
func (h *ProfileHandler) AddActivity(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}

	var activity models.Activity
	if !decodeBody(w, r, h.logger, &activity) {
		return
	}
	if !models.IsValidActivityType(activity.Type) {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_activity_type",
			"Activity type must be 'query' or 'visualization'")
		return
	}
	if strings.TrimSpace(activity.Description) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "missing_description", "Activity description is required")
		return
	}

	writeData(w, h.logger, http.StatusCreated, d.AddActivity(activity))
}

// UpdateNotification handles PUT /api/profile/notifications/{name}
// An unknown name changes nothing and reports updated=false.
func (h *ProfileHandler) UpdateNotification(w http.ResponseWriter, r *http.Request) {
	d, ok := RequireDashboard(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateNotificationRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	name := r.PathValue("name")
	updated := d.UpdateNotificationPreference(name, req.Enabled)
	if !updated {
		h.logger.Debug("Notification preference not found", zap.String("name", name))
	}

	writeData(w, h.logger, http.StatusOK, UpdateNotificationResponse{
		Updated: updated,
		Profile: d.Profile(),
	})
}
