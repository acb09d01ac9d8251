package health

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncTotal       *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	lastSyncSuccess prometheus.Gauge
	keysSynced      prometheus.Gauge
	collisionsTotal prometheus.Counter

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// SyncMetrics provides methods to record sync cycle metrics.
type SyncMetrics struct{}

// NewSyncMetrics creates a new SyncMetrics instance.
// Metrics are lazily registered on first use.
func NewSyncMetrics() *SyncMetrics {
	return &SyncMetrics{}
}

// InitMetrics initializes all Prometheus metrics.
// This should be called once at startup when the metrics endpoint is enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		syncTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gcpsm_sync_total",
				Help: "Total number of sync cycles by outcome and error class",
			},
			[]string{"status", "error"},
		)

		syncDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gcpsm_sync_duration_seconds",
				Help:    "Duration of sync cycles in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
		)

		lastSyncSuccess = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "gcpsm_last_sync_success_timestamp_seconds",
				Help: "Unix timestamp of the last successful sync cycle",
			},
		)

		keysSynced = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "gcpsm_keys_synced",
				Help: "Number of keys applied in the last successful sync",
			},
		)

		collisionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gcpsm_key_collisions_total",
				Help: "Total number of key collisions produced by normalization",
			},
		)

		metricsRegistered = true
	})
}

// RecordSync records a completed sync cycle.
func (m *SyncMetrics) RecordSync(status, errorClass string, duration time.Duration) {
	if !metricsRegistered {
		return
	}

	if syncTotal != nil {
		syncTotal.WithLabelValues(status, errorClass).Inc()
	}
	if syncDuration != nil {
		syncDuration.Observe(duration.Seconds())
	}
	if status == string(OutcomeSuccess) && lastSyncSuccess != nil {
		lastSyncSuccess.SetToCurrentTime()
	}
}

// RecordKeysSynced records how many keys the last successful cycle applied.
func (m *SyncMetrics) RecordKeysSynced(n int) {
	if !metricsRegistered || keysSynced == nil {
		return
	}
	keysSynced.Set(float64(n))
}

// RecordCollision records one normalization collision.
func (m *SyncMetrics) RecordCollision() {
	if !metricsRegistered || collisionsTotal == nil {
		return
	}
	collisionsTotal.Inc()
}
