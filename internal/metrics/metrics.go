// Package metrics collects and exposes Prometheus metrics for the
// provisioning pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the recording interface the orchestrator and handlers use.
type Collector interface {
	RecordRequest(status string)
	RecordVerdict(verdict string)
	RecordProbeDuration(d time.Duration)
	RecordJobDuration(d time.Duration)
	RecordNotificationFailure()
}

// PrometheusCollector registers and records pipeline metrics.
type PrometheusCollector struct {
	requests      *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
	probeDuration prometheus.Histogram
	jobDuration   prometheus.Histogram
	notifyFail    prometheus.Counter
}

func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetprov_requests_total",
			Help: "Provisioning requests by outcome status",
		}, []string{"status"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetprov_job_verdicts_total",
			Help: "Provisioning job runs by classified verdict",
		}, []string{"verdict"}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetprov_probe_duration_seconds",
			Help:    "Duration of fleet existence probes",
			Buckets: prometheus.DefBuckets,
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetprov_job_duration_seconds",
			Help:    "Duration of provisioning job runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		notifyFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleetprov_notification_failures_total",
			Help: "Best-effort notification deliveries that failed",
		}),
	}

	reg.MustRegister(c.requests, c.verdicts, c.probeDuration, c.jobDuration, c.notifyFail)
	return c
}

func (c *PrometheusCollector) RecordRequest(status string) {
	c.requests.WithLabelValues(status).Inc()
}

func (c *PrometheusCollector) RecordVerdict(verdict string) {
	c.verdicts.WithLabelValues(verdict).Inc()
}

func (c *PrometheusCollector) RecordProbeDuration(d time.Duration) {
	c.probeDuration.Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordJobDuration(d time.Duration) {
	c.jobDuration.Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordNotificationFailure() {
	c.notifyFail.Inc()
}

// Handler returns the scrape endpoint handler for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop is a Collector that records nothing; used in tests and when metrics
// are disabled.
type Nop struct{}

func (Nop) RecordRequest(string)              {}
func (Nop) RecordVerdict(string)              {}
func (Nop) RecordProbeDuration(time.Duration) {}
func (Nop) RecordJobDuration(time.Duration)   {}
func (Nop) RecordNotificationFailure()        {}
