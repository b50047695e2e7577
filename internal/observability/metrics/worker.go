package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// dispatchBuckets spans a fast webhook ack up to the 60s client timeout plus retries.
var dispatchBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}

type WorkerMetrics struct {
	registry *prometheus.Registry

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	dispatchInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	dispatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "analyzer",
			Subsystem: "worker",
			Name:      "dispatch_total",
			Help:      "Assignments handed to the analysis webhook, by outcome after retries.",
		},
		[]string{"service", "status"},
	)
	dispatchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "analyzer",
			Subsystem: "worker",
			Name:      "dispatch_duration_seconds",
			Help:      "Time to hand an assignment to the analysis webhook, retries included.",
			Buckets:   dispatchBuckets,
		},
		[]string{"service", "status"},
	)
	dispatchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "analyzer",
			Subsystem: "worker",
			Name:      "dispatch_in_flight",
			Help:      "Webhook dispatches currently awaiting a response.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(dispatchTotal, dispatchDuration, dispatchInFlight)

	return &WorkerMetrics{
		registry:         registry,
		dispatchTotal:    dispatchTotal,
		dispatchDuration: dispatchDuration,
		dispatchInFlight: dispatchInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDispatch() {
	m.dispatchInFlight.Inc()
}

func (m *WorkerMetrics) FinishDispatch(service string, duration time.Duration, err error) {
	m.dispatchInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.dispatchTotal.WithLabelValues(service, status).Inc()
	m.dispatchDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}
