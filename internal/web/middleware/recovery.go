package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 response and logs it with the
// stack trace
func Recovery(logger *zap.Logger, render func(http.ResponseWriter, int, error)) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					err, ok := v.(error)
					if !ok {
						err = fmt.Errorf("panic: %v", v)
					}
					logger.Error("panic recovered",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.Error(err),
						zap.StackSkip("stack", 2),
					)
					render(w, http.StatusInternalServerError, fmt.Errorf("internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
