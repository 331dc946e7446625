package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	jobTotal      *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobInFlight   prometheus.Gauge
	queueLag      *prometheus.HistogramVec
	chunksTotal   *prometheus.CounterVec
	failedBatches *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	jobTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knou",
			Subsystem: "worker",
			Name:      "ingest_job_total",
			Help:      "Total processed ingest jobs by status.",
		},
		[]string{"service", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "knou",
			Subsystem: "worker",
			Name:      "ingest_job_duration_seconds",
			Help:      "Ingest job duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	jobInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "knou",
			Subsystem: "worker",
			Name:      "ingest_job_in_flight",
			Help:      "Number of in-flight ingest jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "knou",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between job enqueue and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	chunksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knou",
			Subsystem: "worker",
			Name:      "chunks_total",
			Help:      "Chunks seen by the indexer by outcome.",
		},
		[]string{"service", "outcome"},
	)
	failedBatches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knou",
			Subsystem: "worker",
			Name:      "failed_batches_total",
			Help:      "Embedding batches that failed.",
		},
		[]string{"service"},
	)

	registry.MustRegister(jobTotal, jobDuration, jobInFlight, queueLag, chunksTotal, failedBatches)

	return &WorkerMetrics{
		registry:      registry,
		jobTotal:      jobTotal,
		jobDuration:   jobDuration,
		jobInFlight:   jobInFlight,
		queueLag:      queueLag,
		chunksTotal:   chunksTotal,
		failedBatches: failedBatches,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.jobInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(service string, duration time.Duration, err error) {
	m.jobInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.jobTotal.WithLabelValues(service, status).Inc()
	m.jobDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordIndexReport(service string, indexed, skipped, failedBatches int) {
	m.chunksTotal.WithLabelValues(service, "indexed").Add(float64(indexed))
	m.chunksTotal.WithLabelValues(service, "skipped").Add(float64(skipped))
	if failedBatches > 0 {
		m.failedBatches.WithLabelValues(service).Add(float64(failedBatches))
	}
}
