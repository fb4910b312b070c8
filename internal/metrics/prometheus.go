// Package metrics реализует экспорт метрик в Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики
var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint", "method"},
	)

	// SamplesGenerated количество сгенерированных показаний
	SamplesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_samples_generated_total",
			Help: "Total number of synthetic samples generated",
		},
	)

	// SamplesRecorded количество показаний, записанных в историю
	SamplesRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_samples_recorded_total",
			Help: "Total number of samples recorded into history",
		},
	)

	// SamplesEvicted количество вытесненных из истории показаний
	SamplesEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_samples_evicted_total",
			Help: "Total number of samples evicted from history",
		},
	)

	// QueueDepth показания в очереди доставки
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_queue_depth",
			Help: "Samples waiting in the delivery queue",
		},
	)

	// HistorySize текущий размер истории
	HistorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_history_size",
			Help: "Number of samples currently held in history",
		},
	)

	// LatestValue последнее значение по каждому полю
	LatestValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weather_latest_value",
			Help: "Most recent value per field",
		},
		[]string{"field"},
	)

	// RollingMean скользящее среднее по каждому полю
	RollingMean = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weather_rolling_mean",
			Help: "Rolling mean per field",
		},
		[]string{"field"},
	)

	// SpikesDetected количество выбросов по полям
	SpikesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_spikes_detected_total",
			Help: "Total number of z-score spikes detected per field",
		},
		[]string{"field"},
	)

	// SnapshotContention неудачные неблокирующие чтения истории
	SnapshotContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_snapshot_contention_total",
			Help: "Non-blocking history reads that found the lock held",
		},
	)

	// CacheErrors ошибки зеркалирования в Redis
	CacheErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_cache_errors_total",
			Help: "Total number of failed cache writes",
		},
	)

	// StreamClients подключенные клиенты потока кадров
	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_stream_clients",
			Help: "Number of connected stream clients",
		},
	)

	// ActiveGoroutines количество активных горутин
	ActiveGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_active_goroutines",
			Help: "Number of active goroutines",
		},
	)

	// RecordLatency время записи показания агрегатором
	RecordLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weather_record_latency_seconds",
			Help:    "Time spent recording one sample",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
	)
)

// UpdateSampleMetrics обновляет метрики по последнему показанию
func UpdateSampleMetrics(values map[string]float64, means map[string]float64, spikes []string) {
	for field, v := range values {
		LatestValue.WithLabelValues(field).Set(v)
	}
	for field, m := range means {
		RollingMean.WithLabelValues(field).Set(m)
	}
	for _, field := range spikes {
		SpikesDetected.WithLabelValues(field).Inc()
	}
}
