package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Запрос на решение
	AttrCustomerCount = "request.customer_count"
	AttrVehicleCount  = "request.vehicle_count"
	AttrDepotID       = "request.depot_id"

	// Стратегия / алгоритм
	AttrStrategy       = "solver.strategy"
	AttrIterations     = "solver.iterations"
	AttrTotalDistance  = "solver.total_distance_meters"
	AttrRoutesFound    = "solver.routes_found"
	AttrUnservedCount  = "solver.unserved_count"

	// Матрица расстояний
	AttrMatrixTier   = "matrix.tier"
	AttrMatrixCached = "matrix.cache_hit"

	// Валидация
	AttrValidationLevel  = "validation.level"
	AttrValidationErrors = "validation.errors"
	AttrValidationPassed = "validation.passed"

	// Аналитика
	AttrVehicleUtilization = "analytics.vehicle_utilization"
)

// RequestAttributes возвращает атрибуты входного запроса на решение CVRP
func RequestAttributes(customerCount, vehicleCount int, depotID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrCustomerCount, customerCount),
		attribute.Int(AttrVehicleCount, vehicleCount),
		attribute.String(AttrDepotID, depotID),
	}
}

// StrategyAttributes возвращает атрибуты исполнения конкретной стратегии гонщика
func StrategyAttributes(name string, iterations int, totalDistance float64, routesFound int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStrategy, name),
		attribute.Int(AttrIterations, iterations),
		attribute.Float64(AttrTotalDistance, totalDistance),
		attribute.Int(AttrRoutesFound, routesFound),
	}
}

// MatrixAttributes возвращает атрибуты запроса к сервису матрицы расстояний
func MatrixAttributes(tier string, cacheHit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrMatrixTier, tier),
		attribute.Bool(AttrMatrixCached, cacheHit),
	}
}

// ValidationAttributes возвращает атрибуты валидации
func ValidationAttributes(level string, errorsCount int, passed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrValidationLevel, level),
		attribute.Int(AttrValidationErrors, errorsCount),
		attribute.Bool(AttrValidationPassed, passed),
	}
}
