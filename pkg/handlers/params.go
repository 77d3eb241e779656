package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/dashboard"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/session"
)

// SessionMiddleware binds the request to its browser's dashboard.
type SessionMiddleware func(http.Handler) http.Handler

// RequireDashboard returns the dashboard bound to the request by the session middleware.
// Writes a 503 and returns false when none is bound.
func RequireDashboard(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*dashboard.Dashboard, bool) {
	d, ok := session.DashboardFromContext(r.Context())
	if !ok {
		logger.Error("No dashboard bound to request", zap.String("path", r.URL.Path))
		writeError(w, logger, http.StatusServiceUnavailable, "session_unavailable", "Dashboard session unavailable")
		return nil, false
	}
	return d, true
}

// decodeBody decodes the JSON request body into dst.
// Writes a 400 and returns false on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, logger *zap.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debug("Rejected malformed request body",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return true
}

func route(withSession SessionMiddleware, fn http.HandlerFunc) http.Handler {
	return withSession(fn)
}
