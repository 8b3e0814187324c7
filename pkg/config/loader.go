// pkg/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "ROUTING_"
	configEnvVar = "CONFIG_PATH"
)

// Loader загружает конфигурацию из разных источников
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// NewLoader создаёт новый загрузчик конфигурации
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/routing-svc/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption - опция для конфигурации загрузчика
type LoaderOption func(*Loader)

// WithConfigPaths устанавливает пути поиска конфигурации
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithEnvPrefix устанавливает префикс переменных окружения
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// Load загружает конфигурацию с приоритетом:
// 1. Defaults (самый низкий)
// 2. Config file (yaml)
// 3. Environment variables (самый высокий)
func (l *Loader) Load() (*Config, error) {
	// 1. Загружаем значения по умолчанию
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Загружаем из файла конфигурации
	if err := l.loadConfigFile(); err != nil {
		// Файл не обязателен, логируем warning
		fmt.Printf("Warning: %v\n", err)
	}

	// 3. Загружаем из переменных окружения (перезаписывают файл)
	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	// 4. Распаковываем в структуру
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Валидируем
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults загружает значения по умолчанию
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		// App
		"app.name":        "routing-svc",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.debug":       false,

		// GRPC
		"grpc.port":                               50060,
		"grpc.max_recv_msg_size":                  16 * 1024 * 1024, // 16MB
		"grpc.max_send_msg_size":                  16 * 1024 * 1024,
		"grpc.max_concurrent_conn":                1000,
		"grpc.keepalive.max_connection_idle":      15 * time.Minute,
		"grpc.keepalive.max_connection_age":       30 * time.Minute,
		"grpc.keepalive.max_connection_age_grace": 5 * time.Minute,
		"grpc.keepalive.time":                     5 * time.Minute,
		"grpc.keepalive.timeout":                  20 * time.Second,
		"grpc.tls.enabled":                        false,

		// Log
		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		// Metrics
		"metrics.enabled":   true,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "routing",
		"metrics.subsystem": "",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "routing-svc",
		"tracing.sample_rate":  0.1,

		// Database (solution history)
		"database.driver":             "postgres",
		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "routing",
		"database.username":           "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  5 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.auto_migrate":       true,

		// Cache (matrix cache, filesystem by default)
		"cache.enabled":     true,
		"cache.driver":      "file",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": 24 * time.Hour,
		"cache.max_entries": 10000,
		"cache.directory":   "./data/matrix-cache",

		// Rate Limit
		"rate_limit.enabled":          true,
		"rate_limit.requests":         100,
		"rate_limit.window":           time.Minute,
		"rate_limit.strategy":         "sliding_window",
		"rate_limit.backend":          "memory",
		"rate_limit.burst_size":       10,
		"rate_limit.cleanup_interval": 5 * time.Minute,

		// Audit
		"audit.enabled":      true,
		"audit.backend":      "stdout",
		"audit.buffer_size":  1000,
		"audit.flush_period": 5 * time.Second,

		// Retry
		"retry.max_attempts":       3,
		"retry.initial_backoff":    100 * time.Millisecond,
		"retry.max_backoff":        10 * time.Second,
		"retry.backoff_multiplier": 2.0,

		// Routing - depot & policy
		"routing.main_depot_lat":          42.70,
		"routing.main_depot_lon":          23.32,
		"routing.per_customer_max_volume": 120.0,
		"routing.symmetric_zone_penalty":  false,

		// Routing - center zone
		"routing.center_zone.center_lat":                42.6975,
		"routing.center_zone.center_lon":                23.3242,
		"routing.center_zone.radius_km":                 1.8,
		"routing.center_zone.discount_for_center_class":  0.10,
		"routing.center_zone.penalty_for_others":         40000.0,

		// Routing - solver
		"routing.solver.time_limit_seconds":          360,
		"routing.solver.parallel_workers":             -1,
		"routing.solver.allow_customer_skipping":      false,
		"routing.solver.skip_penalty":                 45000.0,
		"routing.solver.enable_tsp_reoptimization":     true,
		"routing.solver.tsp_time_limit_seconds":        5,

		// Routing - matrix service
		"routing.matrix.primary_endpoint":      "http://localhost:5000",
		"routing.matrix.fallback_endpoint":     "https://router.project-osrm.org",
		"routing.matrix.profile":               "driving",
		"routing.matrix.timeout_seconds":        15,
		"routing.matrix.chunk_size":             80,
		"routing.matrix.haversine_inflation":    1.3,
		"routing.matrix.haversine_speed_kmh":    40.0,
		"routing.matrix.pairwise_threshold":     500,
		"routing.matrix.pairwise_concurrency":   16,
		"routing.matrix.version":                "v1",

		// Routing - solution cache
		"routing.solution_cache.enabled": true,
		"routing.solution_cache.backend": "memory",
		"routing.solution_cache.ttl":     1 * time.Hour,

		// Routing - history
		"routing.history.enabled": false,
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile загружает конфигурацию из файла
func (l *Loader) loadConfigFile() error {
	// Сначала проверяем переменную окружения
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	// Ищем файл по списку путей
	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv загружает конфигурацию из переменных окружения
func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		// ROUTING_GRPC_PORT -> grpc.port
		return strings.ReplaceAll(
			strings.ToLower(
				strings.TrimPrefix(s, l.envPrefix),
			),
			"_", ".",
		)
	}), nil)
}

// MustLoad загружает конфигурацию или паникует
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load - удобная функция для загрузки с дефолтными настройками
func Load() (*Config, error) {
	return NewLoader().Load()
}

// LoadWithServiceDefaults загружает конфигурацию с переопределением для конкретного сервиса
func LoadWithServiceDefaults(serviceName string, defaultPort int) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	// Если порт не задан явно, используем дефолтный для сервиса
	if cfg.GRPC.Port == 50060 && defaultPort != 0 {
		cfg.GRPC.Port = defaultPort
	}

	// Обновляем имя сервиса
	if cfg.App.Name == "routing-svc" {
		cfg.App.Name = serviceName
	}

	return cfg, nil
}
