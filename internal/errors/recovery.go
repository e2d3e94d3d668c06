package errors

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/frostlabs/boreal/internal/logging"
)

// RecoveryMiddleware converts handler panics into JSON 500 responses
// and logs them with a stack trace. It sits after the logging
// middleware so the panic log carries the request fields.
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				fields := map[string]interface{}{
					"panic": rec,
					"stack": string(debug.Stack()),
				}
				if r != nil {
					fields["method"] = r.Method
					fields["path"] = r.URL.Path
				}
				logger.Error("recovered from panic", fields)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": http.StatusText(http.StatusInternalServerError),
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
