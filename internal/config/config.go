package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
// Нулевые значения полей означают "не задано": геттеры берут env, затем значение по умолчанию.
type Config struct {
	Editor    EditorConfig    `yaml:"editor"`
	World     WorldConfig     `yaml:"world"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Journal   JournalConfig   `yaml:"journal"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type EditorConfig struct {
	HistorySize          int     `yaml:"history_size"`
	MaxConcurrent        int     `yaml:"max_concurrent_operations"`
	TickIntervalMs       int     `yaml:"tick_interval_ms"`
	ReplaceNearMaxRadius float64 `yaml:"replace_near_max_radius"`
}

type WorldConfig struct {
	Backend   string `yaml:"backend"` // memory | badger
	DataPath  string `yaml:"data_path"`
	Name      string `yaml:"name"`
	MinHeight *int   `yaml:"min_height"`
	MaxHeight *int   `yaml:"max_height"`
	Generate  int    `yaml:"generate_radius"` // 0 - без ландшафта
	Seed      int64  `yaml:"seed"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type JournalConfig struct {
	Backend  string `yaml:"backend"` // memory | mongo | maria | redis
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
	DSN      string `yaml:"dsn"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PerActor int    `yaml:"per_actor"`
}

type ServerConfig struct {
	StatusPort  int `yaml:"status_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// GetHistorySize емкость стеков undo/redo
func (e *EditorConfig) GetHistorySize() int {
	return getIntWithEnvFallback(e.HistorySize, "WORLDEDIT_HISTORY_SIZE", 50)
}

// GetMaxConcurrent число одновременно выполняемых правок
func (e *EditorConfig) GetMaxConcurrent() int {
	return getIntWithEnvFallback(e.MaxConcurrent, "WORLDEDIT_MAX_CONCURRENT", 1)
}

// GetTickInterval период планировщика
func (e *EditorConfig) GetTickInterval() time.Duration {
	return time.Duration(getIntWithEnvFallback(e.TickIntervalMs, "WORLDEDIT_TICK_MS", 5)) * time.Millisecond
}

func (e *EditorConfig) GetReplaceNearMaxRadius() float64 {
	if e.ReplaceNearMaxRadius > 0 {
		return e.ReplaceNearMaxRadius
	}
	return 64
}

func (w *WorldConfig) GetBackend() string {
	return strings.ToLower(getStringWithEnvFallback(w.Backend, "WORLDEDIT_WORLD_BACKEND", "memory"))
}

func (w *WorldConfig) GetDataPath() string {
	return getStringWithEnvFallback(w.DataPath, "WORLDEDIT_DATA_PATH", "data/world")
}

func (w *WorldConfig) GetName() string {
	return getStringWithEnvFallback(w.Name, "WORLDEDIT_WORLD_NAME", "world")
}

// GetHeights вертикальные границы [min, max)
func (w *WorldConfig) GetHeights() (int, int) {
	lo, hi := -64, 320
	if w.MinHeight != nil {
		lo = *w.MinHeight
	}
	if w.MaxHeight != nil {
		hi = *w.MaxHeight
	}
	return lo, hi
}

func (b *EventBusConfig) GetURL() string {
	return getStringWithEnvFallback(b.URL, "NATS_URL", "")
}

func (b *EventBusConfig) GetStream() string {
	return getStringWithEnvFallback(b.Stream, "WORLDEDIT_STREAM", "WORLDEDIT")
}

func (b *EventBusConfig) GetRetention() time.Duration {
	return time.Duration(getIntWithEnvFallback(b.Retention, "WORLDEDIT_STREAM_RETENTION_HOURS", 24)) * time.Hour
}

func (j *JournalConfig) GetBackend() string {
	return strings.ToLower(getStringWithEnvFallback(j.Backend, "WORLDEDIT_JOURNAL_BACKEND", "memory"))
}

// GetStatusPort возвращает порт статусного API с поддержкой fallback значений
func (s *ServerConfig) GetStatusPort() int {
	return getIntWithEnvFallback(s.StatusPort, "WORLDEDIT_STATUS_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getIntWithEnvFallback(s.MetricsPort, "WORLDEDIT_METRICS_PORT", 2112)
}

func (t *TelemetryConfig) GetServiceName() string {
	return getStringWithEnvFallback(t.ServiceName, "OTEL_SERVICE_NAME", "worldedit")
}

func (t *TelemetryConfig) GetEndpoint() string {
	return getStringWithEnvFallback(t.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT", "")
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}
	return defaultValue
}

func getStringWithEnvFallback(configValue, envVar, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultValue
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	lo, hi := c.World.GetHeights()
	if lo >= hi {
		return fmt.Errorf("world: min_height %d должен быть меньше max_height %d", lo, hi)
	}
	switch c.World.GetBackend() {
	case "memory", "badger":
	default:
		return fmt.Errorf("world: неизвестный backend %q", c.World.Backend)
	}
	if c.Editor.ReplaceNearMaxRadius < 0 {
		return fmt.Errorf("editor: replace_near_max_radius не может быть отрицательным")
	}
	return nil
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV WORLDEDIT_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("WORLDEDIT_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан, используются значения по умолчанию
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
