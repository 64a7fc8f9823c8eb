package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

const namespace = "menu_converter"

// Metrics bundles the service instruments. One instance is built at
// startup against the process registry; tests pass their own registry
// so parallel packages never collide.
type Metrics struct {
	ConversionsTotal  *prometheus.CounterVec
	ConversionSeconds prometheus.Histogram
	FlagsTotal        prometheus.Counter
	ResolutionsTotal  *prometheus.CounterVec
	TasksQueued       prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConversionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Menu conversions by outcome.",
		}, []string{"outcome"}),
		ConversionSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Wall time of a single menu conversion.",
			Buckets:   prometheus.DefBuckets,
		}),
		FlagsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_total",
			Help:      "Flagged ingredient occurrences across all conversions.",
		}),
		ResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Flag resolutions by status.",
		}, []string{"status"}),
		TasksQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_queued_total",
			Help:      "Conversion tasks accepted onto the queue.",
		}),
	}
}

// RecordResolution folds one resolved menu into the counters.
func (m *Metrics) RecordResolution(res *domain.ResolvedMenu) {
	if m == nil || res == nil {
		return
	}
	m.FlagsTotal.Add(float64(len(res.Outcomes)))
	for _, o := range res.Outcomes {
		m.ResolutionsTotal.WithLabelValues(string(o.Status)).Inc()
	}
}

// RecordConversion notes a finished conversion and its wall time.
func (m *Metrics) RecordConversion(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ConversionsTotal.WithLabelValues(outcome).Inc()
	m.ConversionSeconds.Observe(seconds)
}

// RecordTaskQueued notes one accepted async conversion task.
func (m *Metrics) RecordTaskQueued() {
	if m == nil {
		return
	}
	m.TasksQueued.Inc()
}
