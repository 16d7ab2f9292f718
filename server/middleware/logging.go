package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/serviceclient/logger"
)

const slowRequest = 500 * time.Millisecond

// RequestLogger logs one line per request with its status, size and
// duration. Health probes and any extra skip paths are not logged.
func RequestLogger(log *logger.Logger, skip ...string) Middleware {
	skipped := map[string]bool{"/health": true, "/version": true}
	for _, p := range skip {
		skipped[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipped[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := record(w)
			next.ServeHTTP(rw, r)
			duration := time.Since(start)

			fields := map[string]interface{}{
				logger.FieldMethod:   r.Method,
				"path":               r.URL.Path,
				logger.FieldStatus:   rw.Status(),
				"bytes":              rw.bytes,
				logger.FieldDuration: duration.Milliseconds(),
			}
			if duration > slowRequest {
				fields["slow"] = true
			}
			logByStatus(log.WithContext(r.Context()), fields, rw.Status())
		})
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("request completed", fields)
	case status >= 400:
		log.Warn("request completed", fields)
	default:
		log.Debug("request completed", fields)
	}
}
