// Package analytics содержит агрегатор истории: единственного потребителя
// очереди доставки. Агрегатор записывает показания в историю, ведет
// скользящую статистику по полям и отмечает выбросы по z-score.
package analytics

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"weatherstation/internal/history"
	"weatherstation/internal/metrics"
	"weatherstation/internal/models"
	"weatherstation/internal/telemetry"
)

const (
	// WindowSize размер окна для скользящей статистики (50 показаний)
	WindowSize = 50
	// ZScoreThreshold порог для детекции выбросов (> 2σ)
	ZScoreThreshold = 2.0
)

// Mirror получает копию каждого записанного показания
type Mirror interface {
	MirrorSample(ctx context.Context, s models.Sample) error
}

// Aggregator потребляет показания из очереди и пишет их в историю
type Aggregator struct {
	store  *history.Store
	mirror Mirror

	mu      sync.RWMutex
	windows map[models.Field]*SlidingWindow

	results chan models.SpikeResult
}

// NewAggregator создает агрегатор. mirror может быть nil.
func NewAggregator(store *history.Store, mirror Mirror, bufferSize int) *Aggregator {
	windows := make(map[models.Field]*SlidingWindow, len(models.AllFields))
	for _, f := range models.AllFields {
		windows[f] = NewSlidingWindow(WindowSize)
	}
	return &Aggregator{
		store:   store,
		mirror:  mirror,
		windows: windows,
		results: make(chan models.SpikeResult, bufferSize),
	}
}

// Run принимает показания по одному, пока очередь не закончится.
// Возвращает nil в конце потока и ctx.Err() при отмене.
// Канал Results закрывается при выходе.
func (a *Aggregator) Run(ctx context.Context, rx *telemetry.Receiver) error {
	defer close(a.results)

	for {
		sample, ok := rx.Recv(ctx)
		if !ok {
			return ctx.Err()
		}

		result := a.Process(ctx, sample)
		metrics.QueueDepth.Set(float64(rx.Len()))

		select {
		case a.results <- result:
		default:
			// Канал результатов переполнен, пропускаем
		}
	}
}

// Process записывает одно показание в историю и анализирует его
func (a *Aggregator) Process(ctx context.Context, s models.Sample) models.SpikeResult {
	start := time.Now()
	evicted := a.store.Record(s)
	metrics.RecordLatency.Observe(time.Since(start).Seconds())

	metrics.SamplesRecorded.Inc()
	if evicted {
		metrics.SamplesEvicted.Inc()
	}
	metrics.HistorySize.Set(float64(a.store.Len()))

	result, means := a.analyze(s)

	values := make(map[string]float64, len(models.AllFields))
	for _, f := range models.AllFields {
		values[f.String()] = f.Value(s)
	}
	metrics.UpdateSampleMetrics(values, means, result.Spikes)

	if a.mirror != nil {
		if err := a.mirror.MirrorSample(ctx, s); err != nil {
			metrics.CacheErrors.Inc()
			log.Printf("Failed to mirror sample %s: %v", s.ID, err)
		}
	}

	return result
}

// analyze считает z-score до добавления значения в окно
func (a *Aggregator) analyze(s models.Sample) (models.SpikeResult, map[string]float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := models.SpikeResult{
		SampleID:  s.ID.String(),
		Timestamp: s.Timestamp,
		ZScores:   make(map[string]float64, len(models.AllFields)),
	}
	means := make(map[string]float64, len(models.AllFields))

	for _, f := range models.AllFields {
		w := a.windows[f]
		v := f.Value(s)
		z := w.ZScore(v)
		w.Add(v)

		result.ZScores[f.String()] = z
		means[f.String()] = w.Mean()
		if math.Abs(z) > ZScoreThreshold {
			result.Spikes = append(result.Spikes, f.String())
		}
	}

	return result, means
}

// Results возвращает канал результатов анализа
func (a *Aggregator) Results() <-chan models.SpikeResult {
	return a.results
}

// Stats возвращает скользящую статистику по всем полям
func (a *Aggregator) Stats() map[string]models.FieldRolling {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := make(map[string]models.FieldRolling, len(a.windows))
	for f, w := range a.windows {
		stats[f.String()] = models.FieldRolling{
			Mean:   w.Mean(),
			StdDev: w.StdDev(),
			Count:  w.Count(),
		}
	}
	return stats
}
