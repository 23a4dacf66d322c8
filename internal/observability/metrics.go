package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRetry       = "retry"
	OutcomeCircuitOpen = "circuit_open"
)

// Metrics tracks operational metrics for a scrape run. Collectors live on a
// private registry so several instances (e.g. in tests) never collide.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	bytes          prometheus.Counter
	articles       *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	duplicates     *prometheus.CounterVec
	sources        *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	runs           prometheus.Counter

	server *http.Server
	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgoat",
			Name:      "fetch_requests_total",
			Help:      "Page fetches by request tag and outcome",
		}, []string{"tag", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsgoat",
			Name:      "fetch_duration_seconds",
			Help:      "Page fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tag"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsgoat",
			Name:      "bytes_downloaded_total",
			Help:      "Decoded response bytes downloaded",
		}),
		articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgoat",
			Name:      "articles_total",
			Help:      "Articles accepted per source",
		}, []string{"source"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgoat",
			Name:      "articles_rejected_total",
			Help:      "Candidate articles rejected by validation",
		}, []string{"source", "reason"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgoat",
			Name:      "duplicates_removed_total",
			Help:      "Articles removed as duplicates, by scope",
		}, []string{"scope"}),
		sources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgoat",
			Name:      "source_tasks_total",
			Help:      "Finished source tasks by final state",
		}, []string{"state"}),
		sourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsgoat",
			Name:      "source_duration_seconds",
			Help:      "Wall time of one source task",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"source"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsgoat",
			Name:      "runs_total",
			Help:      "Completed scrape runs",
		}),
		logger: logger.With("component", "metrics"),
	}

	m.registry.MustRegister(
		m.requests, m.fetchDuration, m.bytes,
		m.articles, m.rejected, m.duplicates,
		m.sources, m.sourceDuration, m.runs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordFetch records one fetch attempt.
func (m *Metrics) RecordFetch(tag, outcome string, d time.Duration, size int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(tag, outcome).Inc()
	if outcome == OutcomeOK {
		m.fetchDuration.WithLabelValues(tag).Observe(d.Seconds())
		m.bytes.Add(float64(size))
	}
}

// RecordArticles adds n accepted articles for a source.
func (m *Metrics) RecordArticles(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.articles.WithLabelValues(source).Add(float64(n))
}

// RecordRejection counts one validation rejection.
func (m *Metrics) RecordRejection(source, reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(source, reason).Inc()
}

// RecordDuplicates adds n duplicates removed in scope ("intra" or "cross").
func (m *Metrics) RecordDuplicates(scope string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duplicates.WithLabelValues(scope).Add(float64(n))
}

// RecordSource records a finished source task.
func (m *Metrics) RecordSource(source, state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sources.WithLabelValues(state).Inc()
	m.sourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordRun counts a completed run.
func (m *Metrics) RecordRun() {
	if m == nil {
		return
	}
	m.runs.Inc()
}

// Handler serves metrics in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid metrics port %d", port)
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Shutdown stops the metrics server if it was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
