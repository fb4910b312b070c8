// Package cache зеркалирует показания в Redis для внешних читателей.
// История сервиса в Redis только пишется и при старте не восстанавливается.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"weatherstation/internal/models"
)

const (
	// SampleKeyPrefix префикс для ключей показаний
	SampleKeyPrefix = "weather:sample:"
	// LatestSamplesKey список последних показаний, новейшее первое
	LatestSamplesKey = "weather:latest"
	// SamplesTotalKey счетчик зеркалированных показаний
	SamplesTotalKey = "weather:samples:total"
	// SpikesTotalKey счетчик выбросов
	SpikesTotalKey = "weather:spikes:total"
	// SampleTTL время жизни отдельного показания
	SampleTTL = 1 * time.Hour
	// DefaultLatestSize длина списка последних показаний по умолчанию
	DefaultLatestSize = 1000
)

// RedisCache реализует зеркалирование в Redis
type RedisCache struct {
	client     *redis.Client
	latestSize int64
}

// NewRedisCache создает новое подключение к Redis
func NewRedisCache(ctx context.Context, addr, password string, db, latestSize int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if latestSize <= 0 {
		latestSize = DefaultLatestSize
	}
	return &RedisCache{
		client:     client,
		latestSize: int64(latestSize),
	}, nil
}

// MirrorSample сохраняет показание и обновляет список последних
func (r *RedisCache) MirrorSample(ctx context.Context, s models.Sample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, SampleKeyPrefix+s.ID.String(), data, SampleTTL)
	pipe.LPush(ctx, LatestSamplesKey, data)
	pipe.LTrim(ctx, LatestSamplesKey, 0, r.latestSize-1)
	pipe.Incr(ctx, SamplesTotalKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mirror sample: %w", err)
	}
	return nil
}

// IncrementCounter увеличивает счетчик
func (r *RedisCache) IncrementCounter(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

// GetCounter возвращает значение счетчика
func (r *RedisCache) GetCounter(ctx context.Context, key string) (int64, error) {
	val, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Ping проверяет соединение с Redis
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close закрывает соединение
func (r *RedisCache) Close() error {
	return r.client.Close()
}
