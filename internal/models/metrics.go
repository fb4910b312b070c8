package models

import "time"

// Snapshot снимок истории для слоя представления
type Snapshot struct {
	Latest  *Sample  `json:"latest,omitempty"`
	History []Sample `json:"history"`
}

// FieldRolling скользящая статистика по полю
type FieldRolling struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// SpikeResult результат анализа одного показания
type SpikeResult struct {
	SampleID  string             `json:"sample_id"`
	Timestamp time.Time          `json:"timestamp"`
	ZScores   map[string]float64 `json:"z_scores"`
	Spikes    []string           `json:"spikes,omitempty"`
}

// SpikeDetected сообщает, был ли выброс хотя бы по одному полю
func (r SpikeResult) SpikeDetected() bool {
	return len(r.Spikes) > 0
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Redis     string    `json:"redis"`
	Uptime    string    `json:"uptime"`
}

// StatsResponse содержит статистику сервиса
type StatsResponse struct {
	HistorySize     int    `json:"history_size"`
	HistoryCapacity int    `json:"history_capacity"`
	QueueDepth      int    `json:"queue_depth"`
	MirroredSamples int64  `json:"mirrored_samples"`
	SpikesCount     int64  `json:"spikes_count"`
	Goroutines      int    `json:"goroutines"`
	Uptime          string `json:"uptime"`
}
