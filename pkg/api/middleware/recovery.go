package middleware

import (
	"net/http"

	"github.com/goclaw/typedbus/pkg/api/response"
	"github.com/goclaw/typedbus/pkg/logger"
	"github.com/sourcegraph/conc/panics"
)

// Recovery returns a middleware that turns a handler panic into a 500.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var pc panics.Catcher
			pc.Try(func() { next.ServeHTTP(w, r) })
			rec := pc.Recovered()
			if rec == nil {
				return
			}
			if rec.Value == http.ErrAbortHandler {
				panic(rec.Value)
			}

			log.Error("Panic recovered",
				"error", rec.Value,
				"path", r.URL.Path,
				"method", r.Method,
				"stack", string(rec.Stack),
			)
			response.Error(w,
				http.StatusInternalServerError,
				response.ErrCodeInternalServer,
				"internal server error",
				GetRequestID(r.Context()),
			)
		})
	}
}
