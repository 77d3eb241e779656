package session

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/dashboard"
)

type contextKey struct{}

// WithDashboard returns a copy of ctx carrying d.
func WithDashboard(ctx context.Context, d *dashboard.Dashboard) context.Context {
	return context.WithValue(ctx, contextKey{}, d)
}

// DashboardFromContext returns the dashboard stored by Middleware.
func DashboardFromContext(ctx context.Context) (*dashboard.Dashboard, bool) {
	d, ok := ctx.Value(contextKey{}).(*dashboard.Dashboard)
	return d, ok && d != nil
}

// Middleware resolves the request's dashboard and stores it in the request context.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		d, err := r.Resolve(w, req)
		if err != nil {
			r.logger.Error("Failed to resolve dashboard session", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"success":false,"error":"session_unavailable","message":"Dashboard session unavailable"}`))
			return
		}
		next.ServeHTTP(w, req.WithContext(WithDashboard(req.Context(), d)))
	})
}
