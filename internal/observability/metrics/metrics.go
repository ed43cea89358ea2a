package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "scada_"

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec

	aggregationRuns    *prometheus.CounterVec
	aggregationLatency *prometheus.HistogramVec
	bucketsWritten     *prometheus.CounterVec

	alarmEvents    *prometheus.CounterVec
	commandResults *prometheus.CounterVec

	eventsPublished *prometheus.CounterVec

	streamConnections prometheus.Gauge
	streamDropped     prometheus.Counter
)

// Init registers observability metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total reading ingest requests by result",
			},
			[]string{"result"},
		)

		aggregationRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aggregation_runs_total",
				Help: "Total aggregation runs by granularity and result",
			},
			[]string{"granularity", "result"},
		)
		aggregationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "aggregation_latency_seconds",
				Help:    "Aggregation run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"granularity"},
		)
		bucketsWritten = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "buckets_written_total",
				Help: "Total bucket upserts by operation",
			},
			[]string{"op"},
		)

		alarmEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarm_events_total",
				Help: "Total alarm lifecycle events by type",
			},
			[]string{"type"},
		)
		commandResults = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "command_results_total",
				Help: "Total command results by status",
			},
			[]string{"status"},
		)

		eventsPublished = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_published_total",
				Help: "Total domain events published by type",
			},
			[]string{"type"},
		)

		streamConnections = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stream_connections",
				Help: "Currently connected stream clients",
			},
		)
		streamDropped = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "stream_dropped_messages_total",
				Help: "Messages dropped due to slow stream clients",
			},
		)

		prometheus.MustRegister(
			ingestRequests,
			aggregationRuns,
			aggregationLatency,
			bucketsWritten,
			alarmEvents,
			commandResults,
			eventsPublished,
			streamConnections,
			streamDropped,
		)
	})
}

// IncIngest counts an ingest request result.
func IncIngest(result string) {
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
}

// ObserveAggregation records an aggregation run.
func ObserveAggregation(granularity, result string, elapsed time.Duration) {
	if aggregationRuns != nil {
		aggregationRuns.WithLabelValues(granularity, result).Inc()
	}
	if aggregationLatency != nil {
		aggregationLatency.WithLabelValues(granularity).Observe(elapsed.Seconds())
	}
}

// AddBucketsWritten counts bucket upserts.
func AddBucketsWritten(op string, count int) {
	if bucketsWritten != nil && count > 0 {
		bucketsWritten.WithLabelValues(op).Add(float64(count))
	}
}

// IncAlarmEvent counts an alarm lifecycle event.
func IncAlarmEvent(eventType string) {
	if alarmEvents != nil {
		alarmEvents.WithLabelValues(eventType).Inc()
	}
}

// IncCommandResult counts a command result status.
func IncCommandResult(status string) {
	if commandResults != nil {
		commandResults.WithLabelValues(status).Inc()
	}
}

// IncEventPublished counts a published domain event.
func IncEventPublished(eventType string) {
	if eventsPublished != nil {
		eventsPublished.WithLabelValues(eventType).Inc()
	}
}

// StreamConnected tracks a new stream client.
func StreamConnected() {
	if streamConnections != nil {
		streamConnections.Inc()
	}
}

// StreamDisconnected tracks a departed stream client.
func StreamDisconnected() {
	if streamConnections != nil {
		streamConnections.Dec()
	}
}

// IncStreamDropped counts a dropped stream message.
func IncStreamDropped() {
	if streamDropped != nil {
		streamDropped.Inc()
	}
}
