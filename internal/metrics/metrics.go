// Package metrics registers the pipeline's Prometheus collectors and serves
// them over HTTP.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "events_published_total", Help: "Events published to the bus by kind"},
		[]string{"kind"},
	)
	EventsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "events_consumed_total", Help: "Events consumed from the bus by kind"},
		[]string{"kind"},
	)
	EventErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "event_errors_total", Help: "Per-event processing failures by kind"},
		[]string{"kind"},
	)
	FetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fetch_failures_total", Help: "Exhausted fetch retries by monitor"},
		[]string{"monitor"},
	)
	BoxTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "box_transitions_total", Help: "Box state transitions by state"},
		[]string{"state"},
	)
	SignalsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_emitted_total", Help: "Signals emitted by direction"},
		[]string{"symbol", "direction"},
	)
	SignalsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_rejected_total", Help: "Signals rejected by reason"},
		[]string{"reason"},
	)
	BusDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "bus_depth", Help: "Events currently buffered on the bus"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "open_positions", Help: "Positions currently tracked by the agent"},
	)
	EventProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_processing_duration_seconds",
			Help:    "Time spent routing one event",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsPublishedTotal,
		EventsConsumedTotal,
		EventErrorsTotal,
		FetchFailuresTotal,
		BoxTransitionsTotal,
		SignalsEmittedTotal,
		SignalsRejectedTotal,
		BusDepth,
		OpenPositions,
		EventProcessingDuration,
	)
}

// Serve exposes /metrics on addr in a background goroutine and returns the
// server so the caller can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() { _ = srv.ListenAndServe() }()

	return srv
}
