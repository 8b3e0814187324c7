// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config - главная структура конфигурации
type Config struct {
	App       AppConfig       `koanf:"app"`
	GRPC      GRPCConfig      `koanf:"grpc"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Audit     AuditConfig     `koanf:"audit"`
	Retry     RetryConfig     `koanf:"retry"`
	Routing   RoutingConfig   `koanf:"routing"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// GRPCConfig - настройки gRPC сервера
type GRPCConfig struct {
	Port              int             `koanf:"port"`
	MaxRecvMsgSize    int             `koanf:"max_recv_msg_size"` // bytes
	MaxSendMsgSize    int             `koanf:"max_send_msg_size"` // bytes
	MaxConcurrentConn int             `koanf:"max_concurrent_conn"`
	KeepAlive         KeepAliveConfig `koanf:"keepalive"`
	TLS               TLSConfig       `koanf:"tls"`
}

// KeepAliveConfig - настройки keep-alive
type KeepAliveConfig struct {
	MaxConnectionIdle     time.Duration `koanf:"max_connection_idle"`
	MaxConnectionAge      time.Duration `koanf:"max_connection_age"`
	MaxConnectionAgeGrace time.Duration `koanf:"max_connection_age_grace"`
	Time                  time.Duration `koanf:"time"`
	Timeout               time.Duration `koanf:"timeout"`
}

// TLSConfig - настройки TLS
type TLSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
	CAFile   string `koanf:"ca_file"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// DatabaseConfig - настройки базы данных
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // postgres
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrationsPath  string        `koanf:"migrations_path"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN возвращает строку подключения
func (d DatabaseConfig) DSN() string {
	if strings.ToLower(d.Driver) != "postgres" && strings.ToLower(d.Driver) != "postgresql" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// CacheConfig - настройки кэширования
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory, file
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
	Directory  string        `koanf:"directory"`   // для file backend
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig конфигурация rate limiting
type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Requests        int           `koanf:"requests"`
	Window          time.Duration `koanf:"window"`
	Strategy        string        `koanf:"strategy"`
	Backend         string        `koanf:"backend"`
	BurstSize       int           `koanf:"burst_size"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	RedisAddr       string        `koanf:"redis_addr"`
}

// AuditConfig конфигурация аудит лога
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Backend         string        `koanf:"backend"`
	FilePath        string        `koanf:"file_path"`
	BufferSize      int           `koanf:"buffer_size"`
	FlushPeriod     time.Duration `koanf:"flush_period"`
	ExcludeMethods  []string      `koanf:"exclude_methods"`
	IncludeRequest  bool          `koanf:"include_request"`
	IncludeResponse bool          `koanf:"include_response"`
}

// RetryConfig конфигурация retry
type RetryConfig struct {
	MaxAttempts       int           `koanf:"max_attempts"`
	InitialBackoff    time.Duration `koanf:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
}

// RoutingConfig конфигурация CVRP движка
type RoutingConfig struct {
	Fleet                []VehicleConfig     `koanf:"fleet"`
	CenterZone           CenterZoneConfig    `koanf:"center_zone"`
	Solver               SolverConfig        `koanf:"solver"`
	Matrix               MatrixConfig        `koanf:"matrix"`
	MainDepotLat         float64             `koanf:"main_depot_lat"`
	MainDepotLon         float64             `koanf:"main_depot_lon"`
	PerCustomerMaxVolume float64             `koanf:"per_customer_max_volume"`
	SymmetricZonePenalty bool                `koanf:"symmetric_zone_penalty"`
	SolutionCache        SolutionCacheConfig `koanf:"solution_cache"`
	History              HistoryConfig       `koanf:"history"`
}

// VehicleConfig - параметры одного класса транспортных средств
type VehicleConfig struct {
	Class                string  `koanf:"class"`
	Capacity             int     `koanf:"capacity"`
	Count                int     `koanf:"count"`
	MaxDistanceKM        float64 `koanf:"max_distance_km"`
	HasMaxDistance       bool    `koanf:"has_max_distance"`
	MaxTimeHours         float64 `koanf:"max_time_hours"`
	ServiceTimeMinutes   float64 `koanf:"service_time_minutes"`
	Enabled              bool    `koanf:"enabled"`
	StartLat             float64 `koanf:"start_lat"`
	StartLon             float64 `koanf:"start_lon"`
	MaxCustomersPerRoute int     `koanf:"max_customers_per_route"`
	HasMaxCustomers      bool    `koanf:"has_max_customers"`
	StartTimeMinutes     int     `koanf:"start_time_minutes"`
	TSPDepotLat          float64 `koanf:"tsp_depot_lat"`
	TSPDepotLon          float64 `koanf:"tsp_depot_lon"`
	HasTSPDepot          bool    `koanf:"has_tsp_depot"`
}

// CenterZoneConfig - геозона центра и коэффициенты стоимости
type CenterZoneConfig struct {
	CenterLat        float64 `koanf:"center_lat"`
	CenterLon        float64 `koanf:"center_lon"`
	RadiusKM         float64 `koanf:"radius_km"`
	DiscountForCenter float64 `koanf:"discount_for_center_class"`
	PenaltyForOthers  float64 `koanf:"penalty_for_others"`
}

// SolverConfig - бюджеты и стратегия решателя
type SolverConfig struct {
	TimeLimitSeconds        int     `koanf:"time_limit_seconds"`
	ParallelWorkers         int     `koanf:"parallel_workers"` // -1 = cores-1
	AllowCustomerSkipping   bool    `koanf:"allow_customer_skipping"`
	SkipPenalty             float64 `koanf:"skip_penalty"`
	EnableTSPReoptimization bool    `koanf:"enable_tsp_reoptimization"`
	TSPTimeLimitSeconds     int     `koanf:"tsp_time_limit_seconds"`
}

// MatrixConfig - настройки источника матрицы расстояний
type MatrixConfig struct {
	PrimaryEndpoint     string  `koanf:"primary_endpoint"`
	FallbackEndpoint    string  `koanf:"fallback_endpoint"`
	Profile             string  `koanf:"profile"`
	TimeoutSeconds      int     `koanf:"timeout_seconds"`
	ChunkSize           int     `koanf:"chunk_size"`
	HaversineInflation  float64 `koanf:"haversine_inflation"`
	HaversineSpeedKMH   float64 `koanf:"haversine_speed_kmh"`
	PairwiseThreshold   int     `koanf:"pairwise_threshold"`
	PairwiseConcurrency int     `koanf:"pairwise_concurrency"`
	Version             string  `koanf:"version"`
}

// SolutionCacheConfig - настройки кэша готовых решений
type SolutionCacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	Backend string        `koanf:"backend"`
	TTL     time.Duration `koanf:"ttl"`
}

// HistoryConfig - настройки хранилища истории решений
type HistoryConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		errs = append(errs, fmt.Sprintf("grpc.port must be between 1 and 65535, got %d", c.GRPC.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	for _, v := range c.Routing.Fleet {
		if !v.Enabled {
			continue
		}
		if v.Count < 1 {
			errs = append(errs, fmt.Sprintf("routing.fleet[%s]: enabled vehicle class requires count >= 1", v.Class))
		}
		if v.Capacity < 1 {
			errs = append(errs, fmt.Sprintf("routing.fleet[%s]: enabled vehicle class requires capacity >= 1", v.Class))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
