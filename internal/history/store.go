// Package history хранит ограниченную историю показаний в памяти.
//
// Запись выполняется одним агрегатором под мьютексом; слой представления
// читает через TrySnapshot и при конкуренции за блокировку показывает
// состояние загрузки вместо ожидания.
package history

import (
	"errors"
	"math"
	"sync"
	"time"

	"weatherstation/internal/models"
)

// DefaultCapacity емкость истории по умолчанию
const DefaultCapacity = 1000

// ErrNoData возвращается агрегатами, если за интервал нет показаний
var ErrNoData = errors.New("no data yet")

// Store потокобезопасная ограниченная история показаний
type Store struct {
	mu  sync.Mutex
	buf *Buffer
	now func() time.Time
}

// Option настраивает Store
type Option func(*Store)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore создает хранилище заданной емкости
func NewStore(capacity int, opts ...Option) *Store {
	s := &Store{
		buf: NewBuffer(capacity),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record добавляет показание и вытесняет старейшее при переполнении.
// Возвращает true, если показание было вытеснено.
func (s *Store) Record(sample models.Sample) bool {
	s.mu.Lock()
	_, evicted := s.buf.Push(sample)
	s.mu.Unlock()
	return evicted
}

// Latest возвращает последнее показание; false, если данных еще нет
func (s *Store) Latest() (models.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Last()
}

// Range возвращает показания новее now-d в порядке вставки
func (s *Store) Range(d time.Duration) []models.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rangeLocked(d)
}

func (s *Store) rangeLocked(d time.Duration) []models.Sample {
	cutoff := s.now().Add(-d)
	out := make([]models.Sample, 0)
	for i := 0; i < s.buf.Len(); i++ {
		sample := s.buf.At(i)
		if sample.Timestamp.After(cutoff) {
			out = append(out, sample)
		}
	}
	return out
}

// Since отбирает показания строго новее cutoff, сохраняя порядок
func Since(samples []models.Sample, cutoff time.Time) []models.Sample {
	out := make([]models.Sample, 0, len(samples))
	for _, sample := range samples {
		if sample.Timestamp.After(cutoff) {
			out = append(out, sample)
		}
	}
	return out
}

// Now возвращает текущее время по часам хранилища
func (s *Store) Now() time.Time {
	return s.now()
}

// Average возвращает среднее значение поля за интервал
func (s *Store) Average(field models.Field, d time.Duration) (float64, error) {
	stats, err := s.Summary(field, d)
	if err != nil {
		return 0, err
	}
	return stats.Avg, nil
}

// MinMax возвращает минимум и максимум поля за интервал
func (s *Store) MinMax(field models.Field, d time.Duration) (min, max float64, err error) {
	stats, err := s.Summary(field, d)
	if err != nil {
		return 0, 0, err
	}
	return stats.Min, stats.Max, nil
}

// Summary считает текущее, минимальное, среднее и максимальное значение поля
func (s *Store) Summary(field models.Field, d time.Duration) (models.FieldStats, error) {
	s.mu.Lock()
	samples := s.rangeLocked(d)
	s.mu.Unlock()

	return Summarize(field, samples)
}

// Summarize считает сводку по полю для готового набора показаний
func Summarize(field models.Field, samples []models.Sample) (models.FieldStats, error) {
	if len(samples) == 0 {
		return models.FieldStats{}, ErrNoData
	}

	stats := models.FieldStats{
		Field: field.String(),
		Label: field.Label(),
		Unit:  field.Unit(),
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
		Count: len(samples),
	}
	var sum float64
	for _, sample := range samples {
		v := field.Value(sample)
		sum += v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	stats.Avg = sum / float64(len(samples))
	stats.Now = field.Value(samples[len(samples)-1])
	return stats, nil
}

// TrySnapshot пытается без ожидания получить последнее показание и копию истории.
// false означает, что хранилище сейчас занято и данные временно недоступны.
func (s *Store) TrySnapshot() (models.Snapshot, bool) {
	if !s.mu.TryLock() {
		return models.Snapshot{}, false
	}
	defer s.mu.Unlock()

	snap := models.Snapshot{History: s.buf.Slice()}
	if latest, ok := s.buf.Last(); ok {
		snap.Latest = &latest
	}
	return snap, true
}

// Len возвращает количество показаний в истории
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// Cap возвращает емкость истории
func (s *Store) Cap() int {
	return s.buf.Cap()
}
