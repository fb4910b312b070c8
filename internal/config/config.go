// Package config загружает конфигурацию сервиса: значения по умолчанию,
// затем YAML-файл, затем переменные окружения
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"weatherstation/internal/history"
	"weatherstation/internal/telemetry"
)

// Config содержит конфигурацию сервиса
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig настройки HTTP сервера
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	ReadTimeout   time.Duration `yaml:"readTimeout"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	IdleTimeout   time.Duration `yaml:"idleTimeout"`
	FrameInterval time.Duration `yaml:"frameInterval"`
}

// RedisConfig настройки зеркала в Redis. Пустой адрес отключает зеркало.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Retries  int    `yaml:"retries"`
}

// TelemetryConfig настройки генератора и истории
type TelemetryConfig struct {
	TickInterval    time.Duration `yaml:"tickInterval"`
	HistoryCapacity int           `yaml:"historyCapacity"`
	ResultsBuffer   int           `yaml:"resultsBuffer"`
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8080",
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  15 * time.Second,
			IdleTimeout:   60 * time.Second,
			FrameInterval: time.Second,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Retries: 5,
		},
		Telemetry: TelemetryConfig{
			TickInterval:    telemetry.DefaultInterval,
			HistoryCapacity: history.DefaultCapacity,
			ResultsBuffer:   100,
		},
	}
}

// Load читает конфигурацию. path может быть пустым.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)

	var err error
	if c.Redis.DB, err = getEnvInt("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.Telemetry.HistoryCapacity, err = getEnvInt("HISTORY_CAPACITY", c.Telemetry.HistoryCapacity); err != nil {
		return err
	}
	if c.Telemetry.TickInterval, err = getEnvDuration("TICK_INTERVAL", c.Telemetry.TickInterval); err != nil {
		return err
	}
	if c.Server.FrameInterval, err = getEnvDuration("FRAME_INTERVAL", c.Server.FrameInterval); err != nil {
		return err
	}
	return nil
}

// Validate проверяет значения конфигурации
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Telemetry.HistoryCapacity <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.historyCapacity must be positive, got %d", c.Telemetry.HistoryCapacity))
	}
	if c.Telemetry.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.tickInterval must be positive, got %s", c.Telemetry.TickInterval))
	}
	if c.Server.FrameInterval <= 0 {
		errs = append(errs, fmt.Errorf("server.frameInterval must be positive, got %s", c.Server.FrameInterval))
	}
	if c.Telemetry.ResultsBuffer < 0 {
		errs = append(errs, fmt.Errorf("telemetry.resultsBuffer must not be negative, got %d", c.Telemetry.ResultsBuffer))
	}
	return errors.Join(errs...)
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// getEnvDuration получает длительность из переменной окружения
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
