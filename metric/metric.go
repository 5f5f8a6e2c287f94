// Package metric provides Prometheus metrics collection and monitoring.
package metric

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/cpu"

	"meetmedia/track"
)

const namespace = "meetmedia"

// Metrics contains the Prometheus metrics server and registered custom metrics.
type Metrics struct {
	httpServer       *http.Server
	config           Config
	registry         *prometheus.Registry
	joinRequests     *prometheus.CounterVec
	framesAttributed *prometheus.CounterVec
	framesDropped    *prometheus.CounterVec
	subscribers      prometheus.Gauge
	cpuUsage         prometheus.Gauge
	memoryUsage      prometheus.Gauge
}

// New creates a new Metrics instance with its own registry.
func New(config Config) *Metrics {
	m := &Metrics{
		config:   config,
		registry: prometheus.NewRegistry(),
		joinRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_requests_total",
			Help:      "Join requests by outcome.",
		}, []string{"outcome"}),
		framesAttributed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_attributed_total",
			Help:      "Frames delivered with resolved sources.",
		}, []string{"kind"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames dropped before delivery.",
		}, []string{"kind", "reason"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_subscribers",
			Help:      "Current number of frame event subscribers.",
		}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cpu_usage_percentage",
			Help:      "CPU usage percentage.",
		}),
		memoryUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_usage_bytes",
			Help:      "Current memory usage in bytes.",
		}),
	}
	m.registry.MustRegister(
		m.joinRequests,
		m.framesAttributed,
		m.framesDropped,
		m.subscribers,
		m.cpuUsage,
		m.memoryUsage,
	)
	return m
}

// Handler returns the HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Start initializes and starts the metrics HTTP server.
func (m *Metrics) Start() {
	if m.config.Port == 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())
	m.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", m.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Info().Int("port", m.config.Port).Str("path", m.config.Path).Msg("Starting metrics server")
		if err := m.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Error starting metrics server")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (m *Metrics) Stop() error {
	if m.httpServer != nil {
		log.Info().Int("port", m.config.Port).Msg("Stopping metrics server")
		return m.httpServer.Close()
	}
	return nil
}

// UpdateSystemMetrics collects CPU and memory usage every interval until ctx
// is done.
func (m *Metrics) UpdateSystemMetrics(ctx context.Context) {
	interval := m.config.UpdateInterval
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		m.collectSystemMetrics()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Metrics) collectSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.memoryUsage.Set(float64(memStats.Alloc))

	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		log.Debug().Err(err).Msg("failed to read cpu usage")
		return
	}
	m.cpuUsage.Set(percents[0])
}

// RecordJoin counts a join attempt by outcome.
func (m *Metrics) RecordJoin(outcome string) {
	m.joinRequests.WithLabelValues(outcome).Inc()
}

// FrameAttributed counts a delivered frame.
func (m *Metrics) FrameAttributed(kind track.Kind) {
	m.framesAttributed.WithLabelValues(string(kind)).Inc()
}

// FrameDropped counts a dropped frame.
func (m *Metrics) FrameDropped(kind track.Kind, reason track.DropReason) {
	m.framesDropped.WithLabelValues(string(kind), string(reason)).Inc()
}

// IncrementSubscribers increments the monitor subscriber count.
func (m *Metrics) IncrementSubscribers() {
	m.subscribers.Inc()
}

// DecrementSubscribers decrements the monitor subscriber count.
func (m *Metrics) DecrementSubscribers() {
	m.subscribers.Dec()
}
