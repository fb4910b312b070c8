// Package handlers содержит HTTP обработчики дашборда и API истории
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"weatherstation/internal/cache"
	"weatherstation/internal/history"
	"weatherstation/internal/metrics"
	"weatherstation/internal/models"
)

// Store история показаний, которую читает слой представления
type Store interface {
	Range(d time.Duration) []models.Sample
	Summary(field models.Field, d time.Duration) (models.FieldStats, error)
	TrySnapshot() (models.Snapshot, bool)
	Now() time.Time
	Len() int
	Cap() int
}

// RollingStats источник скользящей статистики по полям
type RollingStats interface {
	Stats() map[string]models.FieldRolling
}

// Counters доступ к счетчикам зеркала
type Counters interface {
	Ping(ctx context.Context) error
	GetCounter(ctx context.Context, key string) (int64, error)
}

// Handler содержит зависимости для HTTP обработчиков
type Handler struct {
	store         Store
	rolling       RollingStats
	counters      Counters
	queueDepth    func() int
	frameInterval time.Duration
	upgrader      websocket.Upgrader
	startTime     time.Time
}

// Option настраивает Handler
type Option func(*Handler)

// WithCounters подключает счетчики зеркала в Redis
func WithCounters(c Counters) Option {
	return func(h *Handler) {
		h.counters = c
	}
}

// WithQueueDepth подключает источник глубины очереди доставки
func WithQueueDepth(f func() int) Option {
	return func(h *Handler) {
		h.queueDepth = f
	}
}

// WithFrameInterval задает период кадров потока по умолчанию
func WithFrameInterval(d time.Duration) Option {
	return func(h *Handler) {
		h.frameInterval = d
	}
}

// NewHandler создает новый обработчик
func NewHandler(store Store, rolling RollingStats, opts ...Option) *Handler {
	h := &Handler{
		store:         store,
		rolling:       rolling,
		frameInterval: time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes регистрирует маршруты обработчика
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/weather/latest", h.LatestHandler).Methods(http.MethodGet)
	r.HandleFunc("/weather/history", h.HistoryHandler).Methods(http.MethodGet)
	r.HandleFunc("/weather/summary", h.SummaryHandler).Methods(http.MethodGet)
	r.HandleFunc("/weather/dashboard", h.DashboardHandler).Methods(http.MethodGet)
	r.HandleFunc("/weather/stream", h.StreamHandler).Methods(http.MethodGet)
	r.HandleFunc("/analyze", h.AnalyzeHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.StatsHandler).Methods(http.MethodGet)
}

// LatestHandler обрабатывает GET /weather/latest - последнее показание.
// Как и дашборд, читает хранилище без ожидания.
func (h *Handler) LatestHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/weather/latest", r.Method))
	defer timer.ObserveDuration()

	snap, ok := h.store.TrySnapshot()
	if !ok {
		metrics.SnapshotContention.Inc()
		h.respond(w, "/weather/latest", r, LoadingView, http.StatusServiceUnavailable)
		return
	}
	if snap.Latest == nil {
		h.respondError(w, "/weather/latest", r, history.ErrNoData.Error(), http.StatusNotFound)
		return
	}

	latest := *snap.Latest
	response := map[string]interface{}{
		"sample":    latest,
		"condition": models.Condition(latest.Temperature),
		"updated":   humanize.RelTime(latest.Timestamp, h.store.Now(), "ago", "from now"),
	}
	h.respond(w, "/weather/latest", r, response, http.StatusOK)
}

// HistoryHandler обрабатывает GET /weather/history?range=6h - показания за интервал
func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/weather/history", r.Method))
	defer timer.ObserveDuration()

	tr, err := models.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		h.respondError(w, "/weather/history", r, err.Error(), http.StatusBadRequest)
		return
	}

	samples := h.store.Range(tr.Duration)
	response := map[string]interface{}{
		"range":   tr.Label,
		"count":   len(samples),
		"samples": samples,
	}
	h.respond(w, "/weather/history", r, response, http.StatusOK)
}

// SummaryHandler обрабатывает GET /weather/summary?range=6h&field=temperature
func (h *Handler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/weather/summary", r.Method))
	defer timer.ObserveDuration()

	q := r.URL.Query()
	tr, err := models.ParseTimeRange(q.Get("range"))
	if err != nil {
		h.respondError(w, "/weather/summary", r, err.Error(), http.StatusBadRequest)
		return
	}

	fields := models.ChartFields
	if name := q.Get("field"); name != "" {
		f, err := models.ParseField(name)
		if err != nil {
			h.respondError(w, "/weather/summary", r, err.Error(), http.StatusBadRequest)
			return
		}
		fields = []models.Field{f}
	}

	summaries := make([]models.FieldStats, 0, len(fields))
	for _, f := range fields {
		stats, err := h.store.Summary(f, tr.Duration)
		if errors.Is(err, history.ErrNoData) {
			h.respondError(w, "/weather/summary", r, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			h.respondError(w, "/weather/summary", r, err.Error(), http.StatusInternalServerError)
			return
		}
		summaries = append(summaries, stats)
	}

	response := map[string]interface{}{
		"range":   tr.Label,
		"summary": summaries,
	}
	h.respond(w, "/weather/summary", r, response, http.StatusOK)
}

// DashboardHandler обрабатывает GET /weather/dashboard - один кадр дашборда.
// Хранилище читается без ожидания; если оно занято, отдается состояние загрузки.
func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/weather/dashboard", r.Method))
	defer timer.ObserveDuration()

	tr, err := models.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		h.respondError(w, "/weather/dashboard", r, err.Error(), http.StatusBadRequest)
		return
	}

	view, ok := h.frame(tr)
	if !ok {
		h.respond(w, "/weather/dashboard", r, view, http.StatusServiceUnavailable)
		return
	}
	h.respond(w, "/weather/dashboard", r, view, http.StatusOK)
}

// frame строит кадр дашборда из неблокирующего снимка
func (h *Handler) frame(tr models.TimeRange) (DashboardView, bool) {
	snap, ok := h.store.TrySnapshot()
	if !ok {
		metrics.SnapshotContention.Inc()
		return LoadingView, false
	}
	return BuildDashboard(snap, tr, h.store.Now()), true
}

// AnalyzeHandler обрабатывает GET /analyze - скользящая статистика по полям
func (h *Handler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/analyze", r.Method))
	defer timer.ObserveDuration()

	response := map[string]interface{}{
		"timestamp": time.Now(),
		"rolling":   h.rolling.Stats(),
	}
	h.respond(w, "/analyze", r, response, http.StatusOK)
}

// HealthHandler обрабатывает GET /health - проверка здоровья
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	redisStatus := "disabled"
	if h.counters != nil {
		redisStatus = "disconnected"
		if h.counters.Ping(r.Context()) == nil {
			redisStatus = "connected"
		}
	}

	status := models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Redis:     redisStatus,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	h.respond(w, "/health", r, status, http.StatusOK)
}

// StatsHandler обрабатывает GET /stats - статистика сервиса
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/stats", r.Method))
	defer timer.ObserveDuration()

	goroutines := runtime.NumGoroutine()
	metrics.ActiveGoroutines.Set(float64(goroutines))

	response := models.StatsResponse{
		HistorySize:     h.store.Len(),
		HistoryCapacity: h.store.Cap(),
		Goroutines:      goroutines,
		Uptime:          time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.queueDepth != nil {
		response.QueueDepth = h.queueDepth()
	}
	if h.counters != nil {
		response.MirroredSamples, _ = h.counters.GetCounter(r.Context(), cache.SamplesTotalKey)
		response.SpikesCount, _ = h.counters.GetCounter(r.Context(), cache.SpikesTotalKey)
	}

	h.respond(w, "/stats", r, response, http.StatusOK)
}

// respond отправляет JSON ответ и учитывает запрос в метриках
func (h *Handler) respond(w http.ResponseWriter, endpoint string, r *http.Request, data interface{}, status int) {
	metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError отправляет ошибку в JSON формате
func (h *Handler) respondError(w http.ResponseWriter, endpoint string, r *http.Request, message string, status int) {
	h.respond(w, endpoint, r, map[string]string{"error": message}, status)
}
