package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// gRPC метрики
	GRPCRequestsTotal    *prometheus.CounterVec
	GRPCRequestDuration  *prometheus.HistogramVec
	GRPCRequestsInFlight prometheus.Gauge

	// Бизнес-метрики
	SolveOperationsTotal *prometheus.CounterVec
	SolveDuration        *prometheus.HistogramVec
	RouteDistanceMeters  *prometheus.HistogramVec
	VehiclesUsedTotal    *prometheus.HistogramVec
	UnservedCustomers    *prometheus.HistogramVec
	MatrixRequestsTotal  *prometheus.CounterVec
	MatrixTierDemotions  *prometheus.CounterVec
	CacheHitsTotal       *prometheus.CounterVec

	// Системные метрики
	MemoryUsage *prometheus.GaugeVec
	Goroutines  prometheus.Gauge

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics инициализирует метрики
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		// gRPC метрики
		GRPCRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_total",
				Help:      "Total number of gRPC requests",
			},
			[]string{"method", "status"},
		),

		GRPCRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_request_duration_seconds",
				Help:      "Duration of gRPC requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),

		GRPCRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_in_flight",
				Help:      "Current number of gRPC requests being processed",
			},
		),

		// Бизнес-метрики
		SolveOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_operations_total",
				Help:      "Total number of CVRP solve operations, by strategy pair and status",
			},
			[]string{"strategy", "status"},
		),

		SolveDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of a strategy racer worker run, including the winner",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"strategy"},
		),

		RouteDistanceMeters: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "route_total_distance_meters",
				Help:      "Total distance of the winning solution per solve",
				Buckets:   []float64{1000, 5000, 10000, 50000, 100000, 250000, 500000, 1000000},
			},
			[]string{"strategy"},
		),

		VehiclesUsedTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "vehicles_used_total",
				Help:      "Number of vehicles used in the winning solution",
				Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
			},
			[]string{"vehicle_class"},
		),

		UnservedCustomers: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "unserved_customers_total",
				Help:      "Number of customers left unserved (skipped or overflowed) per solve",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
			},
			[]string{"reason"},
		),

		MatrixRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "matrix_requests_total",
				Help:      "Distance-matrix retrieval attempts, by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),

		MatrixTierDemotions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "matrix_tier_demotions_total",
				Help:      "Number of times the matrix service fell back to the next tier",
			},
			[]string{"from_tier", "to_tier"},
		),

		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_hits_total",
				Help:      "Cache lookups, by cache name and hit/miss",
			},
			[]string{"cache", "result"},
		),

		// Системные метрики
		MemoryUsage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage",
			},
			[]string{"type"},
		),

		Goroutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "goroutines",
				Help:      "Current number of goroutines",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("routing", "")
	}
	return defaultMetrics
}

// RecordGRPCRequest записывает метрики gRPC запроса
func (m *Metrics) RecordGRPCRequest(method string, status string, duration time.Duration) {
	m.GRPCRequestsTotal.WithLabelValues(method, status).Inc()
	m.GRPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordSolveOperation записывает метрики операции решения CVRP
func (m *Metrics) RecordSolveOperation(strategy string, success bool, duration time.Duration, distanceMeters float64) {
	status := "success"
	if !success {
		status = "error"
	}

	m.SolveOperationsTotal.WithLabelValues(strategy, status).Inc()
	m.SolveDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	if success {
		m.RouteDistanceMeters.WithLabelValues(strategy).Observe(distanceMeters)
	}
}

// RecordFleetUsage записывает использование флота и необслуженных клиентов для победившего решения
func (m *Metrics) RecordFleetUsage(vehicleClass string, vehiclesUsed int, unservedReason string, unservedCount int) {
	m.VehiclesUsedTotal.WithLabelValues(vehicleClass).Observe(float64(vehiclesUsed))
	if unservedCount > 0 {
		m.UnservedCustomers.WithLabelValues(unservedReason).Observe(float64(unservedCount))
	}
}

// RecordMatrixRequest записывает попытку получения матрицы расстояний по уровню обслуживания
func (m *Metrics) RecordMatrixRequest(tier, outcome string) {
	m.MatrixRequestsTotal.WithLabelValues(tier, outcome).Inc()
}

// RecordMatrixTierDemotion записывает откат на следующий уровень сервиса матрицы
func (m *Metrics) RecordMatrixTierDemotion(fromTier, toTier string) {
	m.MatrixTierDemotions.WithLabelValues(fromTier, toTier).Inc()
}

// RecordCacheLookup записывает попадание или промах кэша по имени
func (m *Metrics) RecordCacheLookup(cacheName string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheHitsTotal.WithLabelValues(cacheName, result).Inc()
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer запускает HTTP сервер для метрик
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		// Игнорируем ошибку записи - response уже отправлен
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, ошибка записи не критична
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
