package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"weatherstation/internal/metrics"
	"weatherstation/internal/models"
)

const (
	maxFPS       = 30
	writeTimeout = 5 * time.Second
)

// streamRequest сообщение клиента для смены интервала
type streamRequest struct {
	Range string `json:"range"`
}

// StreamHandler обрабатывает GET /weather/stream - поток кадров дашборда по WebSocket.
// Каждый кадр читает хранилище без ожидания; при конкуренции уходит кадр загрузки.
func (h *Handler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/weather/stream", r.Method))
	defer timer.ObserveDuration()

	tr, err := models.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		h.respondError(w, "/weather/stream", r, err.Error(), http.StatusBadRequest)
		return
	}

	interval := h.frameInterval
	if fps := r.URL.Query().Get("fps"); fps != "" {
		n, err := strconv.Atoi(fps)
		if err != nil || n <= 0 || n > maxFPS {
			h.respondError(w, "/weather/stream", r, "fps must be between 1 and 30", http.StatusBadRequest)
			return
		}
		interval = time.Second / time.Duration(n)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	metrics.RequestsTotal.WithLabelValues("/weather/stream", r.Method, strconv.Itoa(http.StatusSwitchingProtocols)).Inc()
	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	ranges := make(chan models.TimeRange, 1)
	closed := make(chan struct{})
	go readRanges(conn, ranges, closed)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		view, _ := h.frame(tr)
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(view); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case next := <-ranges:
			tr = next
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// readRanges читает сообщения клиента, пока соединение открыто
func readRanges(conn *websocket.Conn, ranges chan models.TimeRange, closed chan<- struct{}) {
	defer close(closed)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req streamRequest
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		tr, err := models.ParseTimeRange(req.Range)
		if err != nil {
			continue
		}

		// Последний запрошенный интервал вытесняет необработанный
		select {
		case <-ranges:
		default:
		}
		ranges <- tr
	}
}
