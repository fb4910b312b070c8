// Package models содержит структуры данных для погодной телеметрии
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sample представляет одно показание метеостанции
type Sample struct {
	ID             uuid.UUID `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	Pressure       float64   `json:"pressure"`
	WindSpeed      float64   `json:"wind_speed"`
	WindDirection  float64   `json:"wind_direction"`
	RainRate       float64   `json:"rain_rate"`
	UVIndex        float64   `json:"uv_index"`
	SolarRadiation float64   `json:"solar_radiation"`
}

// NewSample создает показание с новым идентификатором и текущим временем (UTC)
func NewSample(temperature, humidity, pressure, windSpeed, windDirection, rainRate, uvIndex, solarRadiation float64) Sample {
	return Sample{
		ID:             uuid.New(),
		Timestamp:      time.Now().UTC(),
		Temperature:    temperature,
		Humidity:       humidity,
		Pressure:       pressure,
		WindSpeed:      windSpeed,
		WindDirection:  windDirection,
		RainRate:       rainRate,
		UVIndex:        uvIndex,
		SolarRadiation: solarRadiation,
	}
}

// Field идентифицирует скалярное поле показания
type Field int

const (
	Temperature Field = iota
	Humidity
	Pressure
	WindSpeed
	WindDirection
	RainRate
	UVIndex
	SolarRadiation
)

// AllFields перечисляет поля в порядке их объявления
var AllFields = []Field{
	Temperature, Humidity, Pressure, WindSpeed,
	WindDirection, RainRate, UVIndex, SolarRadiation,
}

// ChartFields поля, для которых дашборд строит графики
var ChartFields = []Field{Temperature, Humidity, Pressure, WindSpeed}

type fieldInfo struct {
	name  string
	label string
	unit  string
}

var fields = map[Field]fieldInfo{
	Temperature:    {"temperature", "Temperature", "°C"},
	Humidity:       {"humidity", "Humidity", "%"},
	Pressure:       {"pressure", "Pressure", "hPa"},
	WindSpeed:      {"wind_speed", "Wind Speed", "m/s"},
	WindDirection:  {"wind_direction", "Wind Direction", "°"},
	RainRate:       {"rain_rate", "Rain Rate", "mm/h"},
	UVIndex:        {"uv_index", "UV Index", ""},
	SolarRadiation: {"solar_radiation", "Solar Radiation", "W/m²"},
}

// String возвращает имя поля в том виде, в каком оно встречается в JSON
func (f Field) String() string {
	if info, ok := fields[f]; ok {
		return info.name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Label человекочитаемое название поля
func (f Field) Label() string {
	return fields[f].label
}

// Unit единица измерения поля
func (f Field) Unit() string {
	return fields[f].unit
}

// Value извлекает значение поля из показания
func (f Field) Value(s Sample) float64 {
	switch f {
	case Temperature:
		return s.Temperature
	case Humidity:
		return s.Humidity
	case Pressure:
		return s.Pressure
	case WindSpeed:
		return s.WindSpeed
	case WindDirection:
		return s.WindDirection
	case RainRate:
		return s.RainRate
	case UVIndex:
		return s.UVIndex
	case SolarRadiation:
		return s.SolarRadiation
	}
	return 0
}

// ParseField разбирает имя поля (temperature, wind_speed, ...)
func ParseField(name string) (Field, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, info := range fields {
		if info.name == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", name)
}

// Condition возвращает словесное описание погоды по температуре
func Condition(temperature float64) string {
	switch {
	case temperature < 0:
		return "Freezing"
	case temperature < 10:
		return "Cold"
	case temperature < 20:
		return "Cool"
	case temperature < 25:
		return "Pleasant"
	case temperature < 30:
		return "Warm"
	default:
		return "Hot"
	}
}

// FieldStats содержит сводку по одному полю за интервал
type FieldStats struct {
	Field string  `json:"field"`
	Label string  `json:"label"`
	Unit  string  `json:"unit"`
	Now   float64 `json:"now"`
	Min   float64 `json:"min"`
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}
