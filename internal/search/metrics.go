package search

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricSearches        = "marketd_searches_total"
	MetricRetrievalErrors = "marketd_search_retrieval_errors_total"
	MetricCandidates      = "marketd_search_candidates_retrieved_total"
	MetricResults         = "marketd_search_results_returned_total"
)

// Metrics contains Prometheus metrics for the search pipeline.
// All operations are thread-safe.
type Metrics struct {
	searches        prometheus.Counter
	retrievalErrors prometheus.Counter
	candidates      prometheus.Counter
	results         prometheus.Counter
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSearches,
			Help: "Total number of search requests executed",
		}),
		retrievalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRetrievalErrors,
			Help: "Total number of searches aborted by a candidate retrieval failure",
		}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCandidates,
			Help: "Total number of candidate listings retrieved across all searches",
		}),
		results: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricResults,
			Help: "Total number of results returned across all searches",
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.searches,
		m.retrievalErrors,
		m.candidates,
		m.results,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveSearch records one completed search.
func (m *Metrics) ObserveSearch(retrieved, returned int) {
	m.searches.Inc()
	m.candidates.Add(float64(retrieved))
	m.results.Add(float64(returned))
}

// IncRetrievalErrors increments the retrieval failure counter.
func (m *Metrics) IncRetrievalErrors() {
	m.retrievalErrors.Inc()
}

// Searches returns the search counter for testing.
func (m *Metrics) Searches() prometheus.Counter {
	return m.searches
}
