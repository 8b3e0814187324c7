// Package main is the entry point for the routing-svc microservice.
//
// routing-svc solves the capacitated vehicle routing problem (CVRP)
// for a fleet of depot-based vehicles against a set of customer
// deliveries, exposed as a gRPC service over a hand-rolled JSON wire
// codec (see pkg/rpcjson).
//
// # Service Overview
//
// The routing service exposes the following capabilities via gRPC:
//   - Solve: allocate customers to vehicle classes, build a distance
//     matrix, race several CVRP construction/improvement strategies in
//     parallel, and optionally reoptimize each route's visiting order
//   - GetSolveRecord / ListSolveRecords: replay past solves from the
//     optional Postgres-backed history store
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to
// lowest):
//  1. Environment variables (prefix: ROUTING_)
//  2. Config files (config.yaml, config/config.yaml,
//     /etc/routing-svc/config.yaml)
//  3. Default values
//
// # Graceful Shutdown
//
// On SIGINT/SIGTERM the gRPC server stops accepting new connections,
// GracefulStop drains in-flight RPCs (forced stop after 30 s), and
// telemetry is flushed before the process exits. RoutingService.Shutdown
// is not called on this path.
package main

import (
	"context"
	"log"
	"time"

	"logistics/pkg/cache"
	"logistics/pkg/config"
	"logistics/pkg/database"
	"logistics/pkg/logger"
	"logistics/pkg/metrics"
	"logistics/pkg/server"
	"logistics/pkg/telemetry"
	"logistics/services/routing-svc/internal/matrix"
	"logistics/services/routing-svc/internal/repo"
	"logistics/services/routing-svc/internal/rpc"
	"logistics/services/routing-svc/internal/service"
)

func main() {
	cfg, err := config.LoadWithServiceDefaults("routing-svc", 50060)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("Failed to init telemetry", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Log.Warn("Failed to shutdown telemetry", "error", err)
				}
			}()
			logger.Log.Info("Telemetry initialized", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.App.Name)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)

	// Matrix cache: HTTP table responses from the routing backends are
	// cached by location-set fingerprint, independent of the solution
	// cache below.
	var matrixCache cache.Cache
	if cfg.Cache.Enabled {
		matrixCache, err = cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("Failed to create matrix cache, continuing without cache", "error", err)
			matrixCache = nil
		}
	}

	// Solution cache: full CVRP solutions, keyed by request
	// fingerprint (customer set + fleet hash), independent of the
	// generic cache driver used for the matrix above.
	var solutionCache cache.Cache
	if cfg.Routing.SolutionCache.Enabled {
		opts := cache.DefaultOptions()
		if cfg.Routing.SolutionCache.Backend != "" {
			opts.Backend = cfg.Routing.SolutionCache.Backend
		}
		if cfg.Routing.SolutionCache.TTL > 0 {
			opts.DefaultTTL = cfg.Routing.SolutionCache.TTL
		}
		solutionCache, err = cache.New(opts)
		if err != nil {
			logger.Log.Warn("Failed to create solution cache, continuing without cache", "error", err)
			solutionCache = nil
		}
	}

	var history repo.SolveRecordRepository
	if cfg.Routing.History.Enabled {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(
				ctx,
				db.Pool(),
				&cfg.Database,
				repo.Migrations,
				repo.MigrationsDir,
			); err != nil {
				logger.Fatal("failed to run migrations", "error", err)
			}
		}

		history = repo.NewPostgresSolveRecordRepository(db)
	}

	matrixSvc := matrix.New(cfg.Routing.Matrix, matrixCache, m)
	routingService := service.New(&cfg.Routing, m, matrixSvc, solutionCache, history)

	srv := server.New(cfg)
	rpc.RegisterRoutingServiceServer(srv.GetEngine(), routingService)

	logger.Info("Starting routing service",
		"port", cfg.GRPC.Port,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"matrix_cache_enabled", matrixCache != nil,
		"solution_cache_enabled", solutionCache != nil,
		"history_enabled", history != nil,
	)

	if err := srv.Run(); err != nil {
		logger.Fatal("server failed", "error", err)
	}
}
