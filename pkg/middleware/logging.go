// Package middleware holds the HTTP middleware shared by every route.
package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/logging"
)

// RequestLogger returns middleware that logs HTTP requests at DEBUG level.
// A nil logger disables logging.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Int("bytes", wrapped.bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			}
			// Suggestion lookups carry partial query text in the URL.
			if q := r.URL.Query().Get("q"); q != "" {
				fields = append(fields, zap.String("q", logging.TruncateQuery(q)))
			}
			logger.Debug("HTTP request", fields...)
		})
	}
}

// Chain applies middleware so that the first one listed is outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	bytes       int
	wroteHeader bool
}

// WriteHeader forwards only the first status; later calls are dropped.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}
