package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "biochar"

// Metrics is registered on its own registry. The gorm plugin reports to the default registry, so
// Handler serves both.
type Metrics struct {
	Registry *prometheus.Registry

	Calculations        *prometheus.CounterVec
	CalculationDuration prometheus.Histogram
	NetCORCs            prometheus.Histogram
	Transitions         *prometheus.CounterVec
	RecalcJobs          *prometheus.CounterVec
	RecalcJobDuration   prometheus.Histogram
	RecalcQueueDepth    prometheus.Gauge
	StaleSweeps         prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Calculations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Monitoring period calculations by outcome",
		}, []string{"outcome"}),
		CalculationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_seconds",
			Help:      "Time to load, aggregate and calculate a monitoring period",
			Buckets:   prometheus.DefBuckets,
		}),
		NetCORCs: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_net_corcs_tco2e",
			Help:      "Net removal of saved calculations",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "certificate_transitions_total",
			Help:      "Certificate lifecycle actions by entity, action and outcome",
		}, []string{"entity", "action", "outcome"}),
		RecalcJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalc_jobs_total",
			Help:      "Background recalculation jobs by final status",
		}, []string{"status"}),
		RecalcJobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recalc_job_duration_seconds",
			Help:      "Background recalculation job run time",
			Buckets:   prometheus.DefBuckets,
		}),
		RecalcQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recalc_queue_depth",
			Help:      "Jobs waiting for a recalculation worker",
		}),
		StaleSweeps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_period_sweeps_total",
			Help:      "Scheduler sweeps for stale monitoring periods",
		}),
	}
}

// ObserveTransition records one lifecycle action. err nil counts as ok.
func (m *Metrics) ObserveTransition(entity, action string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	m.Transitions.WithLabelValues(entity, action, outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers{m.Registry, prometheus.DefaultGatherer}, promhttp.HandlerOpts{})
}
