package middleware

import (
	"fmt"
	"net/http"

	"med-reminder/internal/platform/logger"
)

// Recover corta el pánico de un handler, lo loguea con el request id
// y responde 500 con el envelope estándar de error.
func Recover(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered", map[string]any{
						"panic":     fmt.Sprint(rec),
						"path":      r.URL.Path,
						"requestId": GetRequestID(r.Context()),
					})

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"success":false,"error":{"code":"QUERY_FAILED","message":"internal server error"}}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
