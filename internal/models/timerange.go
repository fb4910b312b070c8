package models

import (
	"fmt"
	"time"
)

// TimeRange интервал, за который дашборд показывает историю
type TimeRange struct {
	Key      string
	Label    string
	Duration time.Duration
}

// Предустановленные интервалы дашборда
var (
	LastHour    = TimeRange{Key: "1h", Label: "Last Hour", Duration: time.Hour}
	Last6Hours  = TimeRange{Key: "6h", Label: "Last 6 Hours", Duration: 6 * time.Hour}
	Last24Hours = TimeRange{Key: "24h", Label: "Last 24 Hours", Duration: 24 * time.Hour}
	Last7Days   = TimeRange{Key: "7d", Label: "Last 7 Days", Duration: 168 * time.Hour}

	// DefaultTimeRange интервал по умолчанию
	DefaultTimeRange = Last6Hours
)

// TimeRanges все предустановленные интервалы
var TimeRanges = []TimeRange{LastHour, Last6Hours, Last24Hours, Last7Days}

// ParseTimeRange принимает ключ предустановки или произвольную длительность Go
func ParseTimeRange(s string) (TimeRange, error) {
	if s == "" {
		return DefaultTimeRange, nil
	}
	for _, tr := range TimeRanges {
		if tr.Key == s {
			return tr, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return TimeRange{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if d <= 0 {
		return TimeRange{}, fmt.Errorf("invalid range %q: must be positive", s)
	}
	return TimeRange{Key: s, Label: "Last " + d.String(), Duration: d}, nil
}
