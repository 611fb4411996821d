package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters for the telemetry pipeline.
type Metrics struct {
	registry            *prometheus.Registry
	recordsTotal        prometheus.Counter
	batchesFlushedTotal prometheus.Counter
	sendFailuresTotal   prometheus.Counter
	batchesDroppedTotal prometheus.Counter
	rebufferSeconds     prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics for one pipeline.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	recordsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venue_telemetry_records_total",
		Help: "Total number of telemetry records batched",
	})
	batchesFlushedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venue_telemetry_batches_flushed_total",
		Help: "Total number of batches handed to the sink",
	})
	sendFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venue_telemetry_send_failures_total",
		Help: "Total number of failed sink delivery attempts",
	})
	batchesDroppedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venue_telemetry_batches_dropped_total",
		Help: "Total number of batches dropped after exhausting retries or on queue overflow",
	})
	rebufferSeconds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venue_playback_rebuffer_seconds_total",
		Help: "Accumulated playback rebuffering time in seconds",
	})

	registry.MustRegister(
		recordsTotal,
		batchesFlushedTotal,
		sendFailuresTotal,
		batchesDroppedTotal,
		rebufferSeconds,
	)

	return &Metrics{
		registry:            registry,
		recordsTotal:        recordsTotal,
		batchesFlushedTotal: batchesFlushedTotal,
		sendFailuresTotal:   sendFailuresTotal,
		batchesDroppedTotal: batchesDroppedTotal,
		rebufferSeconds:     rebufferSeconds,
	}
}

// IncRecords increments the batched records counter.
func (m *Metrics) IncRecords() {
	if m != nil {
		m.recordsTotal.Inc()
	}
}

// IncBatchesFlushed increments the flushed batches counter.
func (m *Metrics) IncBatchesFlushed() {
	if m != nil {
		m.batchesFlushedTotal.Inc()
	}
}

// IncSendFailures increments the failed delivery attempts counter.
func (m *Metrics) IncSendFailures() {
	if m != nil {
		m.sendFailuresTotal.Inc()
	}
}

// IncBatchesDropped increments the dropped batches counter.
func (m *Metrics) IncBatchesDropped() {
	if m != nil {
		m.batchesDroppedTotal.Inc()
	}
}

// AddRebufferSeconds accumulates observed rebuffering time.
func (m *Metrics) AddRebufferSeconds(s float64) {
	if m != nil && s > 0 {
		m.rebufferSeconds.Add(s)
	}
}

// Handler returns an http.Handler that serves the pipeline metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
