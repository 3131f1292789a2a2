package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "github.com/thriftline/marketplace/internal/errors"
	"github.com/thriftline/marketplace/internal/httputil"
	"github.com/thriftline/marketplace/pkg/logger"
)

// Recovery turns a panicking handler into a generic 500 response.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewDefault("http")
	}
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
				log.WithField("trace_id", TraceID(r.Context())).
					WithField("path", r.URL.Path).
					WithField("stack", string(debug.Stack())).
					Errorf("panic: %v", rec)
				httputil.WriteError(w, r, nil, apperrors.Internal("Internal Server Error", fmt.Errorf("panic: %v", rec)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
