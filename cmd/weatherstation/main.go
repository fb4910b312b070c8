// Package main запускает сервис симулированной погодной телеметрии
// Сервис реализует:
// - Генератор синтетических показаний по таймеру (случайное блуждание)
// - Неограниченную очередь доставки от генератора к агрегатору
// - Ограниченную историю показаний в памяти (1000 по умолчанию)
// - Дашборд по HTTP и поток кадров по WebSocket с неблокирующим чтением
// - Зеркалирование показаний в Redis
// - Экспорт метрик в Prometheus
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weatherstation/internal/analytics"
	"weatherstation/internal/cache"
	"weatherstation/internal/config"
	"weatherstation/internal/handlers"
	"weatherstation/internal/history"
	"weatherstation/internal/metrics"
	"weatherstation/internal/telemetry"
)

func main() {
	configPath := flag.String("config", os.Getenv("WEATHER_CONFIG"), "Path to the YAML configuration file")
	flag.Parse()

	log.Println("Starting Weather Station...")
	log.Printf("Go version: %s", runtime.Version())
	log.Printf("NumCPU: %d", runtime.NumCPU())

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	store := history.NewStore(cfg.Telemetry.HistoryCapacity)
	log.Printf("History capacity: %d samples", store.Cap())

	redisCache := connectRedis(cfg.Redis, cfg.Telemetry.HistoryCapacity)

	// Агрегатору нужен nil-интерфейс, а не nil-указатель
	var mirror analytics.Mirror
	handlerOpts := []handlers.Option{handlers.WithFrameInterval(cfg.Server.FrameInterval)}
	if redisCache != nil {
		mirror = redisCache
		handlerOpts = append(handlerOpts, handlers.WithCounters(redisCache))
	}

	aggregator := analytics.NewAggregator(store, mirror, cfg.Telemetry.ResultsBuffer)
	tx, rx := telemetry.NewQueue()
	generator := telemetry.NewGenerator(cfg.Telemetry.TickInterval, nil)

	genCtx, stopGenerator := context.WithCancel(context.Background())
	defer stopGenerator()

	go func() {
		err := generator.Run(genCtx, tx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Generator stopped: %v", err)
		}
	}()
	log.Printf("Generator started, interval %s", cfg.Telemetry.TickInterval)

	aggDone := make(chan error, 1)
	go func() {
		aggDone <- aggregator.Run(context.Background(), rx)
	}()

	go processSpikeResults(aggregator, redisCache)
	go updateMetricsLoop(rx)

	handlerOpts = append(handlerOpts, handlers.WithQueueDepth(rx.Len))
	handler := handlers.NewHandler(store, aggregator, handlerOpts...)

	router := mux.NewRouter()
	handler.Routes(router)

	// Prometheus метрики
	router.Handle("/prometheus", promhttp.Handler())

	// pprof для профилирования
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	router.Use(loggingMiddleware)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		log.Printf("Endpoints:")
		log.Printf("  GET /weather/latest    - Latest sample")
		log.Printf("  GET /weather/history   - Samples in range (?range=6h)")
		log.Printf("  GET /weather/summary   - Now/min/avg/max per field")
		log.Printf("  GET /weather/dashboard - One dashboard frame")
		log.Printf("  GET /weather/stream    - Dashboard frames over WebSocket")
		log.Printf("  GET /analyze           - Rolling statistics")
		log.Printf("  GET /health            - Health check")
		log.Printf("  GET /stats             - Service statistics")
		log.Printf("  GET /prometheus        - Prometheus metrics")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Генератор закрывает свой отправитель, агрегатор дочитывает очередь
	stopGenerator()
	select {
	case err := <-aggDone:
		if err != nil {
			log.Printf("Aggregator stopped: %v", err)
		}
	case <-ctx.Done():
		log.Printf("Aggregator did not drain in time, %d samples left", rx.Len())
		rx.Close()
	}

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if redisCache != nil {
		redisCache.Close()
	}

	log.Println("Weather Station stopped")
}

// connectRedis подключается к Redis с повторами; nil означает работу без зеркала
func connectRedis(cfg config.RedisConfig, latestSize int) *cache.RedisCache {
	if cfg.Addr == "" {
		log.Println("Redis mirror disabled")
		return nil
	}

	retries := cfg.Retries
	if retries <= 0 {
		retries = 1
	}

	var err error
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var c *cache.RedisCache
		c, err = cache.NewRedisCache(ctx, cfg.Addr, cfg.Password, cfg.DB, latestSize)
		cancel()
		if err == nil {
			log.Printf("Connected to Redis at %s", cfg.Addr)
			return c
		}
		log.Printf("Redis connection attempt %d failed: %v", i+1, err)
		if i < retries-1 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}

	log.Printf("Warning: Failed to connect to Redis, running without mirror: %v", err)
	return nil
}

// loggingMiddleware логирует HTTP запросы
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// updateMetricsLoop периодически обновляет метрики Prometheus
func updateMetricsLoop(rx *telemetry.Receiver) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		metrics.QueueDepth.Set(float64(rx.Len()))
		metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))
	}
}

// processSpikeResults обрабатывает результаты анализа
func processSpikeResults(aggregator *analytics.Aggregator, redisCache *cache.RedisCache) {
	for result := range aggregator.Results() {
		if !result.SpikeDetected() {
			continue
		}
		if redisCache != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if _, err := redisCache.IncrementCounter(ctx, cache.SpikesTotalKey); err != nil {
				metrics.CacheErrors.Inc()
			}
			cancel()
		}
		for _, field := range result.Spikes {
			log.Printf("Spike detected! %s z-score: %.2f", field, result.ZScores[field])
		}
	}
}
