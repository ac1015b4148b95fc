package prismtest

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/prismctl/prismctl/internal/common/uuid"
	"github.com/rs/zerolog/log"
)

// RequestIDHeader is echoed back on every response of the fake API.
const RequestIDHeader = "X-Request-Id"

// requestLogger logs every request at debug level under a request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		logger := log.With().Str("request_id", requestID).Logger()
		ctx := logger.WithContext(r.Context())
		logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("fake api request")
		defer func() {
			logger.Debug().Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).Msg("fake api request completed")
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoverer turns a handler panic into a 500 error body.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Str("panic", fmt.Sprintf("%v", err)).
					Str("stack_trace", string(debug.Stack())).
					Msg("panic in fake handler")
				WriteError(w, http.StatusInternalServerError, "unable to process request")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
