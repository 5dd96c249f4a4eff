package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fortuna/huddle/internal/ingest"
)

const namespace = "huddle"

// Metrics holds the ingest and upstream collectors on a private registry.
// It implements ingest.Reporter and sportsdb.Observer.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	gamesProcessed *prometheus.CounterVec
	gamesWritten   *prometheus.CounterVec
	gamesInvalid   *prometheus.CounterVec
	batchesTotal   *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	lastCompleted  *prometheus.GaugeVec
	upstreamReqs   *prometheus.CounterVec
	rateLimitWaits *prometheus.CounterVec
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_runs_total",
		Help:      "Ingestion runs started, by variant",
	}, []string{"variant"})
	m.gamesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_games_processed_total",
		Help:      "Validated games submitted for writing",
	}, []string{"variant"})
	m.gamesWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_games_written_total",
		Help:      "Rows inserted or updated",
	}, []string{"variant"})
	m.gamesInvalid = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_games_invalid_total",
		Help:      "Games dropped by validation",
	}, []string{"variant"})
	m.batchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_batches_total",
		Help:      "Write batches by outcome",
	}, []string{"variant", "outcome"})
	m.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ingest_run_duration_seconds",
		Help:      "Wall time of ingestion runs",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"variant"})
	m.lastCompleted = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ingest_last_completed_timestamp_seconds",
		Help:      "Unix timestamp of the last completed run",
	}, []string{"variant"})
	m.upstreamReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sportsdb_requests_total",
		Help:      "TheSportsDB responses by endpoint and status code",
	}, []string{"endpoint", "code"})
	m.rateLimitWaits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sportsdb_rate_limit_waits_total",
		Help:      "Backoff waits caused by HTTP 429",
	}, []string{"endpoint"})

	m.registry.MustRegister(
		m.runsTotal, m.gamesProcessed, m.gamesWritten, m.gamesInvalid,
		m.batchesTotal, m.runDuration, m.lastCompleted,
		m.upstreamReqs, m.rateLimitWaits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OnRunStart(variant ingest.Variant) {
	m.runsTotal.WithLabelValues(string(variant)).Inc()
}

func (m *Metrics) OnBatch(result ingest.BatchResult) {
	outcome := "ok"
	if result.Err != nil {
		outcome = "failed"
	}
	m.batchesTotal.WithLabelValues(string(result.Variant), outcome).Inc()
}

func (m *Metrics) OnRunComplete(summary ingest.Summary) {
	v := string(summary.Variant)
	m.gamesProcessed.WithLabelValues(v).Add(float64(summary.Valid))
	m.gamesWritten.WithLabelValues(v).Add(float64(summary.Written))
	m.gamesInvalid.WithLabelValues(v).Add(float64(summary.Invalid))

	if !summary.StartedAt.IsZero() && !summary.CompletedAt.IsZero() {
		m.runDuration.WithLabelValues(v).Observe(summary.CompletedAt.Sub(summary.StartedAt).Seconds())
		m.lastCompleted.WithLabelValues(v).Set(float64(summary.CompletedAt.Unix()))
	}
}

func (m *Metrics) ObserveResponse(endpoint string, statusCode int) {
	m.upstreamReqs.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
}

func (m *Metrics) ObserveRateLimitWait(endpoint string, wait time.Duration) {
	m.rateLimitWaits.WithLabelValues(endpoint).Inc()
}
