package telemetry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"weatherstation/internal/metrics"
	"weatherstation/internal/models"
)

const (
	// DefaultInterval период генерации показаний
	DefaultInterval = 5 * time.Second

	// Начальные базовые параметры
	InitialTemperature = 20.0
	InitialHumidity    = 60.0
	InitialPressure    = 1013.25
)

// ErrGeneratorStopped генератор уже запускался и не может быть перезапущен
var ErrGeneratorStopped = errors.New("telemetry: generator already started")

// Generator производит синтетические показания по таймеру.
// Базовые параметры совершают случайное блуждание без ограничений.
type Generator struct {
	interval time.Duration
	rng      *rand.Rand
	started  atomic.Bool

	baseTemperature float64
	baseHumidity    float64
	basePressure    float64
}

// NewGenerator создает генератор. rng может быть nil.
func NewGenerator(interval time.Duration, rng *rand.Rand) *Generator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		interval:        interval,
		rng:             rng,
		baseTemperature: InitialTemperature,
		baseHumidity:    InitialHumidity,
		basePressure:    InitialPressure,
	}
}

// uniform возвращает равномерно распределенное значение из [lo, hi)
func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// Next строит показание из текущих базовых параметров и сдвигает их
func (g *Generator) Next() models.Sample {
	sample := models.NewSample(
		g.baseTemperature+g.uniform(-5, 5),
		g.baseHumidity+g.uniform(-10, 10),
		g.basePressure+g.uniform(-25, 25),
		g.uniform(0, 15),
		g.uniform(0, 360),
		g.uniform(0, 5),
		g.uniform(0, 10),
		g.uniform(0, 1000),
	)

	g.baseTemperature += g.uniform(-0.25, 0.25)
	g.baseHumidity += g.uniform(-1, 1)
	g.basePressure += g.uniform(-0.5, 0.5)

	return sample
}

// Run отправляет показание сразу и далее раз в интервал.
// Завершается без ошибки, когда получатель отключен, и с ctx.Err()
// при отмене контекста. Дескриптор tx закрывается при выходе.
func (g *Generator) Run(ctx context.Context, tx *Sender) error {
	if !g.started.CompareAndSwap(false, true) {
		return ErrGeneratorStopped
	}
	defer tx.Close()

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		if err := tx.Send(g.Next()); err != nil {
			if errors.Is(err, ErrDisconnected) {
				return nil
			}
			return fmt.Errorf("send sample: %w", err)
		}
		metrics.SamplesGenerated.Inc()

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
