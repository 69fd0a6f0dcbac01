package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records pipeline counters. A nil *Metrics is a no-op recorder.
type Metrics struct {
	remoteRequests  *prometheus.CounterVec
	remoteDuration  prometheus.Histogram
	remoteRetries   *prometheus.CounterVec
	receipts        *prometheus.CounterVec
	receiptDuration prometheus.Histogram
	queueDepth      prometheus.Gauge
	exports         *prometheus.CounterVec
	retryQueued     prometheus.Counter
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		remoteRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docintel_requests_total",
				Help: "Total number of document analysis requests by outcome",
			},
			[]string{"operation", "status"},
		),
		remoteDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docintel_analyze_duration_seconds",
				Help:    "Time from submit to terminal analysis status",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		remoteRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docintel_retry_attempts_total",
				Help: "Total number of retried document analysis calls",
			},
			[]string{"reason"},
		),
		receipts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "receipts_processed_total",
				Help: "Total number of receipts processed by outcome",
			},
			[]string{"outcome"},
		),
		receiptDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "receipt_processing_duration_seconds",
				Help:    "End to end processing time per receipt file",
				Buckets: prometheus.DefBuckets,
			},
		),
		queueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "receipt_queue_depth",
				Help: "Files waiting in the processing queue",
			},
		),
		exports: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "receipt_exports_total",
				Help: "Total number of export artifacts written by format",
			},
			[]string{"format", "status"},
		),
		retryQueued: f.NewCounter(
			prometheus.CounterOpts{
				Name: "receipt_retry_queue_added_total",
				Help: "Total number of files added to the retry queue",
			},
		),
	}
}

func (m *Metrics) RemoteRequest(operation, status string) {
	if m == nil {
		return
	}
	m.remoteRequests.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) RemoteDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.remoteDuration.Observe(d.Seconds())
}

func (m *Metrics) RemoteRetry(reason string) {
	if m == nil {
		return
	}
	m.remoteRetries.WithLabelValues(reason).Inc()
}

// ReceiptProcessed counts one file; outcome is "success", "empty" or "failed".
func (m *Metrics) ReceiptProcessed(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.receipts.WithLabelValues(outcome).Inc()
	m.receiptDuration.Observe(d.Seconds())
}

func (m *Metrics) QueueDepth(delta float64) {
	if m == nil {
		return
	}
	m.queueDepth.Add(delta)
}

func (m *Metrics) Export(format string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.exports.WithLabelValues(format, status).Inc()
}

func (m *Metrics) RetryQueued() {
	if m == nil {
		return
	}
	m.retryQueued.Inc()
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
