package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics provides Prometheus metrics for configuration resolution. A disabled
// Metrics value accepts every call and records nothing.
type Metrics struct {
	config MetricsConfig

	modulesLoaded     *prometheus.CounterVec
	modulesResolved   *prometheus.CounterVec
	stageDuration     *prometheus.HistogramVec
	resolverPasses    prometheus.Histogram
	substitutions     prometheus.Counter
	problems          *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	activeResolutions prometheus.Gauge

	registry *prometheus.Registry
}

// Cache lookup results.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		modulesLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "modules_loaded_total",
				Help:      "Total number of module loads by outcome",
			},
			[]string{"status"},
		),
		modulesResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "modules_resolved_total",
				Help:      "Total number of module resolutions by outcome",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   buckets,
			},
			[]string{"stage"},
		),
		resolverPasses: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolver_passes",
				Help:      "Number of reference resolution passes per tree",
				Buckets:   prometheus.LinearBuckets(1, 1, 8),
			},
		),
		substitutions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reference_substitutions_total",
				Help:      "Total number of substituted references",
			},
		),
		problems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "problems_total",
				Help:      "Total number of reported problems by ID and level",
			},
			[]string{"id", "level"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Merged tree cache lookups by result",
			},
			[]string{"result"},
		),
		activeResolutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_resolutions",
				Help:      "Current number of modules being resolved",
			},
		),
	}

	registry.MustRegister(
		m.modulesLoaded,
		m.modulesResolved,
		m.stageDuration,
		m.resolverPasses,
		m.substitutions,
		m.problems,
		m.cacheLookups,
		m.activeResolutions,
	)

	return m, nil
}

// Registry returns the registry holding the metrics, nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordModuleLoaded records the outcome of reading and merging a module.
func (m *Metrics) RecordModuleLoaded(status string) {
	if m.modulesLoaded == nil {
		return
	}
	m.modulesLoaded.WithLabelValues(status).Inc()
}

// ResolutionStarted tracks a resolution in flight.
func (m *Metrics) ResolutionStarted() {
	if m.activeResolutions == nil {
		return
	}
	m.activeResolutions.Inc()
}

// RecordModuleResolved records a finished resolution.
func (m *Metrics) RecordModuleResolved(status string) {
	if m.modulesResolved == nil {
		return
	}
	m.modulesResolved.WithLabelValues(status).Inc()
	m.activeResolutions.Dec()
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	if m.stageDuration == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordResolver records the work of one resolver run.
func (m *Metrics) RecordResolver(passes, substitutions int) {
	if m.resolverPasses == nil {
		return
	}
	m.resolverPasses.Observe(float64(passes))
	m.substitutions.Add(float64(substitutions))
}

// RecordProblem counts a reported problem.
func (m *Metrics) RecordProblem(id, level string) {
	if m.problems == nil {
		return
	}
	m.problems.WithLabelValues(id, level).Inc()
}

// RecordCacheLookup counts a merged tree cache lookup.
func (m *Metrics) RecordCacheLookup(result string) {
	if m.cacheLookups == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer serves the metrics endpoint in the background. It does nothing
// when metrics are disabled or no listen address is configured.
func (m *Metrics) StartMetricsServer() *http.Server {
	if !m.config.Enabled || m.config.ListenAddress == "" {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("address", m.config.ListenAddress).Msg("Metrics server failed")
		}
	}()

	return server
}
