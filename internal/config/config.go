package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig ошибка валидации конфигурации
var ErrInvalidConfig = errors.New("config: некорректная конфигурация")

// Значения по умолчанию повторяют исходный редактор рельефа
const (
	DefaultWidth     = 1024
	DefaultHeight    = 1024
	DefaultAmplitude = 200.0
	DefaultFrequency = 0.005

	// DefaultMaxVertices — предел вершин сетки для запросов через API (4096x4096)
	DefaultMaxVertices = 4096 * 4096
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Terrain   TerrainConfig   `yaml:"terrain"`
	Server    ServerConfig    `yaml:"server"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type EventBusConfig struct {
	// URL NATS; пусто — in-memory шина
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type ServerConfig struct {
	RESTPort        int  `yaml:"rest_port"`
	MetricsPort     int  `yaml:"metrics_port"`
	GenerateOnStart bool `yaml:"generate_on_start"`
	// MaxVertices — предел width*height для POST /api/terrain/generate
	MaxVertices int `yaml:"max_vertices"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// File — писать ли лог в каталог logs/
	File bool `yaml:"file"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "TERRAIN_REST_PORT", 8088)
}

// GetMetricsPort возвращает порт Prometheus метрик
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "TERRAIN_METRICS_PORT", 2112)
}

// GetMaxVertices возвращает предел вершин сетки для API
func (s *ServerConfig) GetMaxVertices() int {
	return getIntWithEnvFallback(s.MaxVertices, "TERRAIN_MAX_VERTICES", DefaultMaxVertices)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	return getIntWithEnvFallback(configPort, envVar, defaultPort)
}

// getIntWithEnvFallback возвращает положительное значение: config -> env -> default
func getIntWithEnvFallback(configVal int, envVar string, defaultVal int) int {
	if configVal > 0 {
		return configVal
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultVal
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Terrain: DefaultTerrain(),
		EventBus: EventBusConfig{
			Stream:    "TERRAIN",
			Retention: 24,
			Buffer:    64,
		},
		Logging: LoggingConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			ServiceName: "terrain-gen",
		},
	}
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать путь из ENV TERRAIN_CONFIG,
// иначе возвращает конфигурацию по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TERRAIN_CONFIG")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse разбирает YAML; незаданные секции получают значения по умолчанию
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Terrain.Expression = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Terrain.Expression == nil {
		cfg.Terrain.Expression = DefaultExpression()
	}
	return cfg, nil
}

// applyEnv применяет переопределения из окружения
func applyEnv(cfg *Config) error {
	if v := os.Getenv("TERRAIN_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: TERRAIN_SEED=%q: %v", ErrInvalidConfig, v, err)
		}
		s := uint32(seed)
		cfg.Terrain.Seed = &s
	}
	if v := os.Getenv("TERRAIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if err := c.Terrain.Validate(); err != nil {
		return err
	}
	if c.Server.MaxVertices < 0 {
		return fmt.Errorf("%w: server.max_vertices < 0", ErrInvalidConfig)
	}
	if c.EventBus.Buffer < 0 {
		return fmt.Errorf("%w: eventbus.buffer < 0", ErrInvalidConfig)
	}
	return nil
}
