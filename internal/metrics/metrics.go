// Package metrics exposes Prometheus collectors for archiver runs. Batch runs
// have no scrape endpoint, so the registry is flushed to a node-exporter
// textfile when a run finishes.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Article results recorded by the downloader.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
)

// Recorder owns a private registry and the collectors registered on it.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	fetchAttempts   *prometheus.CounterVec
	fetchBytes      prometheus.Counter
	pagesTotal      prometheus.Counter
	pagesSkipped    prometheus.Counter
	refsDiscovered  prometheus.Counter
	articlesTotal   *prometheus.CounterVec
	lastRunSeconds  *prometheus.GaugeVec
	lastRunDuration *prometheus.GaugeVec
}

// New builds a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		fetchAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_fetch_attempts_total",
				Help: "Fetch attempts made by the retry policy, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		fetchBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "archiver_fetch_bytes_total",
			Help: "Bytes returned by successful fetches.",
		}),
		pagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "archiver_index_pages_total",
			Help: "Listing pages fetched and processed by the index crawler.",
		}),
		pagesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "archiver_index_pages_skipped_total",
			Help: "Listing pages skipped after fetch failures.",
		}),
		refsDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "archiver_index_references_discovered_total",
			Help: "New article references discovered by the index crawler.",
		}),
		articlesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_articles_total",
				Help: "Articles processed by the downloader, labeled by result.",
			},
			[]string{"result"},
		),
		lastRunSeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "archiver_last_run_timestamp_seconds",
				Help: "Unix time the last run of each job finished.",
			},
			[]string{"job"},
		),
		lastRunDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "archiver_last_run_duration_seconds",
				Help: "Wall time of the last run of each job.",
			},
			[]string{"job"},
		),
	}
}

// Registry exposes the underlying registry as a Gatherer.
func (r *Recorder) Registry() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// ObserveFetchAttempt counts one attempt and, on success, its payload size.
func (r *Recorder) ObserveFetchAttempt(ok bool, bytesFetched int) {
	if r == nil {
		return
	}
	if !ok {
		r.fetchAttempts.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	r.fetchAttempts.WithLabelValues(OutcomeSuccess).Inc()
	if bytesFetched > 0 {
		r.fetchBytes.Add(float64(bytesFetched))
	}
}

// ObservePage counts a processed listing page and its new references.
func (r *Recorder) ObservePage(newRefs int) {
	if r == nil {
		return
	}
	r.pagesTotal.Inc()
	if newRefs > 0 {
		r.refsDiscovered.Add(float64(newRefs))
	}
}

// ObservePageSkipped counts a listing page abandoned after fetch failures.
func (r *Recorder) ObservePageSkipped() {
	if r == nil {
		return
	}
	r.pagesSkipped.Inc()
}

// ObserveArticle counts one downloader item.
func (r *Recorder) ObserveArticle(succeeded bool) {
	if r == nil {
		return
	}
	result := ResultFailed
	if succeeded {
		result = ResultSucceeded
	}
	r.articlesTotal.WithLabelValues(result).Inc()
}

// ObserveRun stamps the completion time and duration of job.
func (r *Recorder) ObserveRun(job string, finished time.Time, duration time.Duration) {
	if r == nil {
		return
	}
	r.lastRunSeconds.WithLabelValues(job).Set(float64(finished.Unix()))
	r.lastRunDuration.WithLabelValues(job).Set(duration.Seconds())
}

// WriteTextfile dumps the registry in the text exposition format to path.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
