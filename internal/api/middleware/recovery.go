package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/api/response"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"stack", string(debug.Stack()),
				)
				// Echo the failing request back so a client report can be
				// matched to the panic log without guessing.
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An unexpected error occurred",
					map[string]string{
						"method": r.Method,
						"path":   r.URL.Path,
					})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
