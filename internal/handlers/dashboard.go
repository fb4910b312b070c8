package handlers

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"weatherstation/internal/history"
	"weatherstation/internal/models"
)

// Card текущее значение одного показателя
type Card struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DashboardView содержимое одного кадра дашборда
type DashboardView struct {
	Status    string              `json:"status"`
	Online    bool                `json:"online"`
	Range     string              `json:"range"`
	Latest    *models.Sample      `json:"latest,omitempty"`
	Condition string              `json:"condition,omitempty"`
	UpdatedAt string              `json:"updated_at,omitempty"`
	Updated   string              `json:"updated,omitempty"`
	Cards     []Card              `json:"cards,omitempty"`
	Charts    []models.FieldStats `json:"charts,omitempty"`
	Samples   string              `json:"samples"`
	History   []models.Sample     `json:"history"`
}

// cardFormats поля карточек и формат их значений
var cardFormats = []struct {
	field  models.Field
	format string
}{
	{models.Temperature, "%.1f°C"},
	{models.Humidity, "%.1f%%"},
	{models.Pressure, "%.0f hPa"},
	{models.WindSpeed, "%.1f m/s"},
	{models.RainRate, "%.1f mm/h"},
	{models.UVIndex, "%.1f"},
}

// LoadingView кадр, который отдается при занятом хранилище
var LoadingView = DashboardView{Status: "loading", History: []models.Sample{}}

// BuildDashboard строит кадр дашборда из снимка истории
func BuildDashboard(snap models.Snapshot, tr models.TimeRange, now time.Time) DashboardView {
	inRange := history.Since(snap.History, now.Add(-tr.Duration))

	view := DashboardView{
		Status:  "ok",
		Online:  snap.Latest != nil,
		Range:   tr.Label,
		Samples: humanize.Comma(int64(len(inRange))) + " samples",
		History: inRange,
	}

	if snap.Latest != nil {
		w := *snap.Latest
		view.Latest = &w
		view.Condition = models.Condition(w.Temperature)
		view.UpdatedAt = w.Timestamp.Format("15:04:05")
		view.Updated = humanize.RelTime(w.Timestamp, now, "ago", "from now")
		view.Cards = make([]Card, 0, len(cardFormats))
		for _, c := range cardFormats {
			view.Cards = append(view.Cards, Card{
				Label: c.field.Label(),
				Value: fmt.Sprintf(c.format, c.field.Value(w)),
			})
		}
	}

	for _, f := range models.ChartFields {
		stats, err := history.Summarize(f, inRange)
		if err != nil {
			continue
		}
		view.Charts = append(view.Charts, stats)
	}

	return view
}
