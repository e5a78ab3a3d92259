package httpapi

import (
	"net/http"
	"time"

	"github.com/go-kit/log/level"
)

// statusRecorder captures the status code a handler wrote, defaulting
// to 200 when the handler never calls WriteHeader explicitly (the
// common case for a bare w.Write).
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// withLogging wraps next with structured access logging: method, path,
// status, and duration, at Info level, grounded on the leveled-logger
// access-log convention used throughout the retrieval pack rather than
// pulling in a gRPC-oriented middleware package for a single HTTP
// interceptor.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.observe(r.URL.Path, rec.status, elapsed.Seconds())
		}
		level.Info(s.Logger).Log(
			"msg", "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}
