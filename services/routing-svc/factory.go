// Package routingsvc wires the routing service's internal packages
// together for external benchmarks/tests that
// need a ready-to-use rpc.RoutingServiceServer without reaching into
// internal/.
package routingsvc

import (
	"logistics/pkg/cache"
	"logistics/pkg/config"
	"logistics/pkg/metrics"
	"logistics/services/routing-svc/internal/matrix"
	"logistics/services/routing-svc/internal/repo"
	"logistics/services/routing-svc/internal/rpc"
	"logistics/services/routing-svc/internal/service"
)

// NewBenchmarkServer builds a RoutingService with an in-memory
// solution cache, no matrix backend caching, and no history
// persistence, suitable for local benchmarking or smoke tests.
func NewBenchmarkServer() rpc.RoutingServiceServer {
	cfg := &config.RoutingConfig{
		PerCustomerMaxVolume: 120,
		Solver: config.SolverConfig{
			EnableTSPReoptimization: true,
		},
	}
	matrixSvc := matrix.New(cfg.Matrix, nil, nil)
	solutionCache := cache.MustNew(cache.DefaultOptions())
	return service.New(cfg, nil, matrixSvc, solutionCache, nil)
}

// New builds the routing service from a fully loaded configuration,
// wiring the matrix client's cache, the solution cache, and the
// optional history repository.
func New(cfg *config.RoutingConfig, m *metrics.Metrics, matrixCache cache.Cache, solutionCache cache.Cache, history repo.SolveRecordRepository) rpc.RoutingServiceServer {
	matrixSvc := matrix.New(cfg.Matrix, matrixCache, m)
	return service.New(cfg, m, matrixSvc, solutionCache, history)
}
