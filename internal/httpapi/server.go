// Package httpapi implements the HTTP surface spec.md leaves external:
// /search, /search-videos, and /healthz, routed with gorilla/mux and
// wrapped in structured access logging and RequestError-aware error
// mapping.
package httpapi

import (
	"net/http"

	"github.com/go-kit/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/query"
	"github.com/tvnews/newsquery/internal/transcript"
)

// Server holds everything a request handler needs: the loaded data
// context, the transcript backend, and request-shaping limits. Built
// once at startup and shared read-only across concurrent requests,
// matching the data context's own lifecycle.
type Server struct {
	Evaluator         *query.Evaluator
	Data              *datacontext.DataContext
	Logger            log.Logger
	MaxVideoSearchIDs int

	registry *prometheus.Registry
	metrics  *metrics
}

// NewServer builds a Server wired to data and idx, with its own
// metrics registry so /metrics reports only this process's counters.
func NewServer(data *datacontext.DataContext, idx transcript.Index, logger log.Logger, maxVideoSearchIDs int) *Server {
	reg := prometheus.NewRegistry()
	return &Server{
		Evaluator:         &query.Evaluator{Data: data, Transcript: idx},
		Data:              data,
		Logger:            logger,
		MaxVideoSearchIDs: maxVideoSearchIDs,
		registry:          reg,
		metrics:           newMetrics(reg),
	}
}

// Router builds the mux.Router serving every route this package
// defines.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/search", s.withLogging(http.HandlerFunc(s.handleSearch))).Methods(http.MethodGet)
	r.Handle("/search-videos", s.withLogging(http.HandlerFunc(s.handleSearchVideos))).Methods(http.MethodGet)
	r.Handle("/healthz", s.withLogging(http.HandlerFunc(s.handleHealthz))).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}
