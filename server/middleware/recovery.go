package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/serviceclient/envelope"
	"github.com/kbukum/serviceclient/logger"
)

// Recovery turns a panic into a 500 error envelope and logs the stack.
func Recovery(log *logger.Logger) Middleware {
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
				log.WithContext(r.Context()).Error("panic recovered", map[string]interface{}{
					"error":  fmt.Sprintf("%v", rec),
					"stack":  string(debug.Stack()),
					"path":   r.URL.Path,
					"method": r.Method,
				})
				writeEnvelope(w, http.StatusInternalServerError, envelope.Fail("Internal server error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
