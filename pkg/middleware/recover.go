package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Recover turns a handler panic into a JSON 500 so one bad request cannot take
// down the server.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("Recovered from handler panic",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("panic", fmt.Sprint(rec)),
					zap.Stack("stack"))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"success":false,"error":"internal_error","message":"Internal server error"}`))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
