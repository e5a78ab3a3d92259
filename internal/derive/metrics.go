package derive

import "github.com/prometheus/client_golang/prometheus"

// Job gauges track the worker pool's live state for whichever process
// embeds the derivation pipeline (newsquery-derive prints a final
// summary; a longer-lived embedder could scrape these directly).
var (
	jobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "newsquery_derive_jobs_in_flight",
		Help: "Derivation jobs currently queued or running in the worker pool.",
	})
	jobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "newsquery_derive_jobs_completed_total",
		Help: "Derivation jobs that have finished, successfully or not.",
	})
	jobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "newsquery_derive_jobs_failed_total",
		Help: "Derivation jobs that returned an error.",
	})
)

func init() {
	prometheus.MustRegister(jobsInFlight, jobsCompleted, jobsFailed)
}
