package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/otherjamesbrown/focusflow/pkg/logging"
)

// requestContext copies chi's request id into the logging context key and
// echoes it back to the client.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id != "" {
			w.Header().Set("X-Request-Id", id)
			r = r.WithContext(context.WithValue(r.Context(), logging.RequestIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog logs each request and records HTTP metrics by route pattern.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.RecordHTTP(route, strconv.Itoa(status), elapsed.Seconds())

		log := s.logger.WithContext(r.Context())
		fields := []logging.Field{
			logging.F("method", r.Method),
			logging.F("route", route),
			logging.F("status", status),
			logging.F("bytes", ww.BytesWritten()),
			logging.F("duration_ms", elapsed.Milliseconds()),
		}
		if status >= 500 {
			log.Warn("Request failed", fields...)
			return
		}
		log.Debug("Request served", fields...)
	})
}
