package observ

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "orlint"

// Metrics are the analysis counters. A nil *Metrics records nothing, so
// library callers that do not care can pass nil.
type Metrics struct {
	// Registry the collectors were registered with; used by WriteTextfile.
	Registry *prometheus.Registry

	RuleDuration     *prometheus.HistogramVec
	RuleFailures     *prometheus.CounterVec
	Diagnostics      *prometheus.CounterVec
	FilesAnalyzed    prometheus.Counter
	AnalysisDuration prometheus.Histogram
	FixesApplied     prometheus.Counter
	FixesSkipped     *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
}

// NewMetrics registers the collectors in a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RuleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "rule_duration_seconds",
			Help:      "Time spent in one rule for one file",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"rule"}),
		RuleFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rule_failures_total",
			Help:      "Rule runs that returned an error or panicked",
		}, []string{"rule"}),
		Diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics produced, by severity",
		}, []string{"severity"}),
		FilesAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_analyzed_total",
			Help:      "Completed file analyses",
		}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall-clock time of one file analysis",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		FixesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fixes_applied_total",
			Help:      "Fixes written to documents",
		}),
		FixesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fixes_skipped_total",
			Help:      "Fixes not applied, by reason",
		}, []string{"reason"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Disk cache lookups of batch runs, by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveRule(rule string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.RuleDuration.WithLabelValues(rule).Observe(d.Seconds())
	if failed {
		m.RuleFailures.WithLabelValues(rule).Inc()
	}
}

// ObserveAnalysis records one finished analysis; counts maps severity labels
// to the number of diagnostics.
func (m *Metrics) ObserveAnalysis(d time.Duration, counts map[string]int) {
	if m == nil {
		return
	}
	m.FilesAnalyzed.Inc()
	m.AnalysisDuration.Observe(d.Seconds())
	for sev, n := range counts {
		m.Diagnostics.WithLabelValues(sev).Add(float64(n))
	}
}

func (m *Metrics) ObserveFixes(applied int, skipped map[string]int) {
	if m == nil {
		return
	}
	m.FixesApplied.Add(float64(applied))
	for reason, n := range skipped {
		m.FixesSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// ObserveCache counts one disk cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// WriteTextfile dumps the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics %q: %w", path, err)
	}
	return nil
}
